// Package chat runs a question through intent routing, the AI provider and the message store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/intent"
	"github.com/wikiai/backend/internal/llm"
	"github.com/wikiai/backend/internal/metrics"
	"github.com/wikiai/backend/internal/storage/models"
	"github.com/wikiai/backend/pkg/logger"
)

// FallbackText replaces the answer whenever the AI provider fails.
const FallbackText = "Désolé, une erreur s'est produite. Veuillez réessayer."

// FileAnalysisTrustScore is attached to answers grounded on an uploaded file.
const FileAnalysisTrustScore = 0.9

var (
	ErrEmptyMessage  = errors.New("message is required")
	ErrEmptyQuestion = errors.New("question and extracted_text are required")
)

type Store interface {
	InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
	Ping(ctx context.Context) error
}

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Reply is the outcome of one AI call. Degraded replies carry FallbackText and the cause.
type Reply struct {
	Text     string
	Degraded bool
	Cause    error
}

type Request struct {
	Message     string
	MessageType string
	SessionID   string
}

type FileQuestion struct {
	Question      string
	ExtractedText string
	Filename      string
	MessageType   string
	SessionID     string
}

type Orchestrator struct {
	store     Store
	completer Completer
	router    *intent.Router
}

func NewOrchestrator(store Store, completer Completer, router *intent.Router) *Orchestrator {
	return &Orchestrator{
		store:     store,
		completer: completer,
		router:    router,
	}
}

// Chat answers a free question and persists the exchange. AI failures yield a degraded record, not an error.
func (o *Orchestrator) Chat(ctx context.Context, req Request) (*models.ChatMessage, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	route := o.router.Resolve(req.MessageType)
	msg := models.NewChatMessage(req.SessionID, req.Message, string(route.Type))

	logger.Info("Processing chat message",
		zap.String("id", msg.ID),
		zap.String("session_id", msg.SessionID),
		zap.String("message_type", string(route.Type)),
	)

	reply := o.ask(ctx, route, intent.UserPrompt(req.Message))

	msg.Response = reply.Text
	msg.Degraded = reply.Degraded
	msg.Sources = []string{}
	if !reply.Degraded {
		msg.TrustScore = intent.TrustScore(route.Type)
		msg.Downloadable = intent.Downloadable(reply.Text)
	}

	if err := o.persist(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// AnalyzeFile answers a question about previously extracted file text.
func (o *Orchestrator) AnalyzeFile(ctx context.Context, q FileQuestion) (*models.ChatMessage, error) {
	if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.ExtractedText) == "" {
		return nil, ErrEmptyQuestion
	}

	route := o.router.Resolve(q.MessageType)
	msg := models.NewChatMessage(q.SessionID, q.Question, string(route.Type))

	logger.Info("Analyzing file",
		zap.String("id", msg.ID),
		zap.String("filename", q.Filename),
		zap.Int("text_length", len([]rune(q.ExtractedText))),
	)

	reply := o.ask(ctx, route, filePrompt(q))

	msg.Response = reply.Text
	msg.Degraded = reply.Degraded
	msg.Sources = []string{q.Filename}
	if !reply.Degraded {
		score := FileAnalysisTrustScore
		msg.TrustScore = &score
		msg.Downloadable = intent.Downloadable(reply.Text)
	}

	if err := o.persist(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// History returns a session's messages oldest first; an unknown session yields an empty slice.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	messages, err := o.store.ListBySession(ctx, sessionID, models.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

func (o *Orchestrator) Ready(ctx context.Context) error {
	return o.store.Ping(ctx)
}

func (o *Orchestrator) ask(ctx context.Context, route intent.Route, userPrompt string) Reply {
	start := time.Now()

	resp, err := o.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: route.SystemPrompt,
		UserPrompt:   userPrompt,
		Model:        route.Model,
	})

	metrics.ChatDuration.WithLabelValues(string(route.Type)).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Error("AI provider call failed, replying with fallback",
			zap.String("message_type", string(route.Type)),
			zap.String("model", route.Model),
			zap.Error(err),
		)
		metrics.ChatTotal.WithLabelValues(string(route.Type), metrics.StatusDegraded).Inc()
		return Reply{Text: FallbackText, Degraded: true, Cause: err}
	}

	metrics.ChatTotal.WithLabelValues(string(route.Type), metrics.StatusOK).Inc()
	metrics.LLMTokensUsed.WithLabelValues(resp.Model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(resp.Model, "completion").Add(float64(resp.Usage.CompletionTokens))

	return Reply{Text: resp.Content}
}

func (o *Orchestrator) persist(ctx context.Context, msg *models.ChatMessage) error {
	if err := o.store.InsertChatMessage(ctx, msg); err != nil {
		metrics.ChatTotal.WithLabelValues(msg.MessageType, metrics.StatusError).Inc()
		logger.Error("Failed to persist chat message",
			zap.String("id", msg.ID),
			zap.String("session_id", msg.SessionID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

func filePrompt(q FileQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Voici le contenu du fichier « %s » :\n\n", q.Filename)
	b.WriteString(q.ExtractedText)
	b.WriteString("\n\nEn te basant sur ce contenu, réponds à la question suivante : ")
	b.WriteString(intent.UserPrompt(q.Question))
	return b.String()
}
