package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/metrics"
)

// Completer is a chat completion provider using the OpenAI-compatible API.
// It implements both domain.Completer and domain.StreamCompleter.
type Completer struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	logger   *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion provider.
func NewCompleter(cfg *Config) *Completer {
	return &Completer{
		client:   newClient(cfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.Completion{}, parseAPIError("completion", err, domain.ErrCompletionProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrCompletionProviderError)
	}

	c.observe(start, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return domain.Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Stream implements domain.StreamCompleter. Tokens are delivered in order; an onToken
// error closes the upstream stream and is returned as is.
func (c *Completer) Stream(
	ctx context.Context,
	req domain.CompletionRequest,
	onToken func(token string) error,
) (domain.Completion, error) {
	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.Completion{}, parseAPIError("completion", err, domain.ErrCompletionProviderError)
	}
	defer stream.Close()

	var (
		text  strings.Builder
		usage openai.Usage
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
			return domain.Completion{Text: text.String()},
				parseAPIError("completion", err, domain.ErrCompletionProviderError)
		}
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		text.WriteString(token)
		if err := onToken(token); err != nil {
			return domain.Completion{Text: text.String()}, err
		}
	}

	c.observe(start, usage.PromptTokens, usage.CompletionTokens)
	return domain.Completion{
		Text:             text.String(),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Completer) observe(start time.Time, prompt, completion int) {
	metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.provider, c.model).Observe(time.Since(start).Seconds())
	if prompt+completion > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(prompt))
		metrics.CompletionTokensTotal.WithLabelValues(c.provider, c.model, "completion").Add(float64(completion))
	}
}

func (c *Completer) buildRequest(req domain.CompletionRequest, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		User:        c.user,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, toMessage(m))
	}
	return out
}

// toMessage maps a domain message. A single text part becomes plain Content;
// anything multimodal becomes MultiContent with files sent as data URLs.
func toMessage(m domain.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{Role: string(m.Role)}
	if len(m.Parts) == 1 {
		if tp, ok := m.Parts[0].(domain.TextPart); ok {
			msg.Content = tp.Text
			return msg
		}
	}

	for _, p := range m.Parts {
		switch v := p.(type) {
		case domain.TextPart:
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: v.Text,
			})
		case domain.FilePart:
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: v.DataURL(), Detail: openai.ImageURLDetailAuto},
			})
		}
	}
	return msg
}
