package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
)

// DefaultSections is the outline used when neither the caller nor a planner supplies one.
var DefaultSections = []string{
	"Executive Summary",
	"Understanding of Requirements",
	"Proposed Solution",
	"Implementation Plan",
	"Team and Experience",
	"Quality and Compliance",
	"Pricing Approach",
}

const maxPlannedSections = 12

// StaticPlanner returns a fixed outline; caller-supplied sections take precedence.
type StaticPlanner struct {
	Sections []string
}

// Plan implements Planner.
func (p StaticPlanner) Plan(_ context.Context, req Request, _ Analyses) ([]string, error) {
	if s := cleanTitles(req.Sections); len(s) > 0 {
		return s, nil
	}
	if s := cleanTitles(p.Sections); len(s) > 0 {
		return s, nil
	}
	return append([]string(nil), DefaultSections...), nil
}

// ModelPlanner asks the completion model for an outline tailored to the requirements.
// Caller-supplied sections still take precedence and cost no call.
type ModelPlanner struct {
	completer Completer
	fallback  StaticPlanner
}

// modelPlanner is implemented by planners that may call the completion model.
type modelPlanner interface {
	UsesModel(req Request) bool
}

// NewModelPlanner creates a planner that falls back to the static outline.
func NewModelPlanner(c Completer, fallback StaticPlanner) *ModelPlanner {
	return &ModelPlanner{completer: c, fallback: fallback}
}

// UsesModel reports whether Plan will call the model for req.
func (p *ModelPlanner) UsesModel(req Request) bool {
	return len(cleanTitles(req.Sections)) == 0
}

// Plan implements Planner. An unusable answer falls back to the static outline.
func (p *ModelPlanner) Plan(ctx context.Context, req Request, analyses Analyses) ([]string, error) {
	if s := cleanTitles(req.Sections); len(s) > 0 {
		return s, nil
	}

	instruction := req.Prompt
	if instruction == "" {
		instruction = DefaultInstruction
	}
	out, err := p.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			domain.SystemText(plannerSystem),
			domain.UserText(plannerPrompt(instruction, analyses)),
		},
		MaxTokens: 400,
	})
	if err != nil {
		return nil, fmt.Errorf("plan outline: %w", err)
	}

	titles := cleanTitles(strings.Split(out.Text, "\n"))
	if len(titles) == 0 {
		return p.fallback.Plan(ctx, req, analyses)
	}
	if len(titles) > maxPlannedSections {
		titles = titles[:maxPlannedSections]
	}
	return titles, nil
}

// cleanTitles strips list markers and markdown emphasis and drops empty or duplicate titles.
func cleanTitles(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if m := bulletLine.FindStringSubmatch(t); m != nil {
			t = m[1]
		}
		t = strings.TrimSpace(strings.Trim(strings.TrimLeft(t, "#"), "*_ "))
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
