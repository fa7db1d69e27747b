package session

import (
	"fmt"
	"strings"
	"time"
)

// Stage is one step of the generation state machine.
type Stage int

// Stages in execution order. Error is terminal and reachable from any stage.
const (
	StagePreparing Stage = iota
	StageAnalyzingSource
	StageAnalyzingCompany
	StagePlanning
	StageWriting
	StageReviewing
	StageFinalizing
	StageComplete
	StageError
)

var stageNames = [...]string{
	"preparing", "analyzing_source", "analyzing_company", "planning",
	"writing", "reviewing", "finalizing", "complete", "error",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Terminal reports whether no further transition is allowed.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// SectionStatus is the lifecycle of one generated section.
type SectionStatus string

// Section statuses.
const (
	StatusDraft SectionStatus = "draft"
	StatusFinal SectionStatus = "final"
)

// Section is one titled subdivision of the generated document.
type Section struct {
	Title        string
	Body         string
	Requirements []string
	Status       SectionStatus
	Failed       bool
}

// Stats aggregates run statistics.
type Stats struct {
	Started    time.Time
	Elapsed    time.Duration
	Calls      map[Stage]int
	CacheHits  int
	Failures   int
	Retrievals int
}

// Session is one generation run. It is owned by a single orchestrator invocation.
type Session struct {
	ID                string
	Prompt            string
	AdditionalContext string
	CompanyContext    string
	DocumentIDs       []string
	Sections          []Section
	Stage             Stage
	Stats             Stats
	Fallback          bool

	body strings.Builder
}

// New starts a session in the Preparing stage.
func New(id, prompt string, now time.Time) *Session {
	return &Session{
		ID:     id,
		Prompt: prompt,
		Stage:  StagePreparing,
		Stats:  Stats{Started: now, Calls: make(map[Stage]int)},
	}
}

// Advance moves to the next stage. Stages may be skipped forward but never revisited,
// and nothing leaves a terminal stage.
func (s *Session) Advance(next Stage) error {
	if s.Stage.Terminal() {
		return fmt.Errorf("session %s: transition from terminal stage %s", s.ID, s.Stage)
	}
	if next != StageError && next <= s.Stage {
		return fmt.Errorf("session %s: transition %s -> %s out of order", s.ID, s.Stage, next)
	}
	s.Stage = next
	return nil
}

// Fail moves the session to the terminal Error stage.
func (s *Session) Fail() {
	if !s.Stage.Terminal() {
		s.Stage = StageError
	}
}

// CountCall records one upstream call in the current stage.
func (s *Session) CountCall() {
	s.Stats.Calls[s.Stage]++
}

// Append records an emitted content block.
func (s *Session) Append(block string) {
	s.body.WriteString(block)
}

// Body returns the concatenation of every emitted block.
func (s *Session) Body() string {
	return s.body.String()
}

// Finish stamps the elapsed time.
func (s *Session) Finish(now time.Time) {
	s.Stats.Elapsed = now.Sub(s.Stats.Started)
}
