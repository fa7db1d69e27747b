package chi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	logpkg "github.com/kailas-cloud/tenderdraft/internal/logger"
	"github.com/kailas-cloud/tenderdraft/internal/transport/stream"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/generation"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/retrieval"
)

const (
	maxChatMessages = 50
	chatContextTopK = 5
)

// Chat handles POST /api/v1/chat with a server-sent event token stream.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}
	msgs, err := chatMessages(req.Messages)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	log := logpkg.FromContext(r.Context(), s.logger)
	if req.UseDocuments {
		if excerpt := s.chatContext(r, msgs, log); excerpt != "" {
			msgs = append([]domain.Message{domain.SystemText(excerpt)}, msgs...)
		}
	}

	sse := stream.NewSSE(w).WithErrorMessage(generation.UserMessage)
	_, err = s.chat.Stream(r.Context(), domain.CompletionRequest{Messages: msgs}, sse.Send)
	if err != nil {
		log.Warn("Chat stream failed", zap.Error(err))
	}
	sse.Close(err)
}

// chatContext retrieves passages for the last user message; failures degrade to none.
func (s *Server) chatContext(r *http.Request, msgs []domain.Message, log *zap.Logger) string {
	var query string
	for i := len(msgs) - 1; i >= 0 && query == ""; i-- {
		if msgs[i].Role != domain.RoleUser {
			continue
		}
		if tp, ok := msgs[i].Parts[0].(domain.TextPart); ok {
			query = tp.Text
		}
	}
	if query == "" {
		return ""
	}

	matches, err := s.retrieval.Search(r.Context(), query, retrieval.Options{TopK: chatContextTopK})
	if err != nil {
		log.Warn("Chat retrieval failed", zap.Error(err))
		return ""
	}
	if len(matches) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Answer using the following excerpts from the uploaded documents when relevant.\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "\n[%d] %s (%s):\n%s\n", i+1, m.Chunk.Title, m.Chunk.Category, strings.TrimSpace(m.Chunk.Text))
	}
	return b.String()
}

func chatMessages(in []ChatMessage) ([]domain.Message, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("messages are required")
	}
	if len(in) > maxChatMessages {
		return nil, fmt.Errorf("at most %d messages are allowed", maxChatMessages)
	}
	out := make([]domain.Message, 0, len(in))
	for i, m := range in {
		role := domain.Role(strings.ToLower(m.Role))
		switch role {
		case domain.RoleUser, domain.RoleAssistant, domain.RoleSystem:
		default:
			return nil, fmt.Errorf("messages[%d].role must be user, assistant or system", i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, fmt.Errorf("messages[%d].content is required", i)
		}
		out = append(out, domain.Message{Role: role, Parts: []domain.Part{domain.TextPart{Text: m.Content}}})
	}
	return out, nil
}
