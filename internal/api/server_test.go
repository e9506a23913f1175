package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikiai/backend/internal/chat"
	"github.com/wikiai/backend/internal/docgen"
	"github.com/wikiai/backend/internal/ingestion"
	"github.com/wikiai/backend/internal/intent"
	"github.com/wikiai/backend/internal/llm"
	"github.com/wikiai/backend/internal/sources"
	"github.com/wikiai/backend/internal/storage/models"
	"github.com/wikiai/backend/pkg/config"
)

type memoryStore struct {
	mu       sync.Mutex
	messages []models.ChatMessage
}

func (s *memoryStore) InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memoryStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, 0)
	for _, m := range s.messages {
		if m.SessionID == sessionID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryStore) Ping(ctx context.Context) error { return nil }

type stubCompleter struct {
	content string
	err     error
}

func (c *stubCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.content, Model: req.Model}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:   10,
			WriteTimeout:  10,
			BodyLimit:     4 * 1024 * 1024,
			CORSOrigins:   "*",
			IsDevelopment: true,
		},
		Assistant: config.AssistantConfig{ProductName: "WikiAI", Audience: "étudiants québécois"},
		Upload:    config.UploadConfig{MaxFileSize: 1024, MaxTextChars: 50},
	}
}

func newTestApp(t *testing.T, completer *stubCompleter) *fiber.App {
	t.Helper()
	cfg := testConfig()
	router := intent.NewRouter(cfg.Assistant.Audience, "gpt-4o", nil)
	clock := func() time.Time { return time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC) }

	return NewServer(cfg, Services{
		Chat:      chat.NewOrchestrator(&memoryStore{}, completer, router),
		Sources:   sources.NewAnalyzer(nil),
		Renderer:  docgen.NewRenderer(cfg.Assistant.ProductName, docgen.WithClock(clock)),
		Extractor: ingestion.NewExtractor(t.TempDir()),
	}, Options{})
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func upload(t *testing.T, app *fiber.App, filename string, content []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/upload-file", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestRoot(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, body := doJSON(t, app, "GET", "/api/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"API WikiAI - Assistant IA pour étudiants québécois"}`, string(body))
}

func TestChatAndHistory(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "Réponse"})

	resp, body := doJSON(t, app, "POST", "/api/chat", `{"message":"Bonjour","message_type":"sources_fiables","session_id":"s1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Empty(t, resp.Header.Get("X-AI-Degraded"))

	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, "Réponse", msg.Response)
	assert.Equal(t, "sources_fiables", msg.MessageType)
	require.NotNil(t, msg.TrustScore)
	assert.Equal(t, 0.95, *msg.TrustScore)

	resp, body = doJSON(t, app, "GET", "/api/chat/history/s1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []models.ChatMessage
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)

	resp, body = doJSON(t, app, "GET", "/api/chat/history/unknown", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(body))
}

func TestChat_DegradedReply(t *testing.T) {
	app := newTestApp(t, &stubCompleter{err: errors.New("provider unavailable")})

	resp, body := doJSON(t, app, "POST", "/api/chat", `{"message":"Bonjour"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-AI-Degraded"))

	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.True(t, msg.Degraded)
	assert.Equal(t, chat.FallbackText, msg.Response)
}

func TestChat_Validation(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, _ := doJSON(t, app, "POST", "/api/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader("message=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, r.StatusCode)
}

func TestSourcesAnalyze(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, body := doJSON(t, app, "POST", "/api/sources/analyze", `["https://www.education.gouv.qc.ca/programmes","http://random.example"]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"analyzed_sources":[
		{"url":"https://www.education.gouv.qc.ca/programmes","trust_score":0.98,"trust_level":"very reliable","recommendation":"recommended source"},
		{"url":"http://random.example","trust_score":0.5,"trust_level":"moderately reliable","recommendation":"verify against other sources"}
	]}`, string(body))
}

func TestGenerateDocument(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, body := doJSON(t, app, "POST", "/api/generate-document", `{"content":"Para 1\n\nPara 2","title":"Mon cours","format":"docx"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, docgen.FormatDOCX.ContentType(), resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Mon_cours_20250506_070809.docx")
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))

	resp, _ = doJSON(t, app, "POST", "/api/generate-document", `{"content":"x","title":"t","format":"pdf","filename":"../../notes"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "notes.pdf")
	assert.NotContains(t, resp.Header.Get("Content-Disposition"), "..")

	resp, body = doJSON(t, app, "POST", "/api/generate-document", `{"content":"x","title":"t","format":"odt"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "invalid format")

	resp, _ = doJSON(t, app, "POST", "/api/generate-document", `{"content":"  ","format":"pdf"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadFile(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, body := upload(t, app, "notes.txt", []byte("Le cycle de l'eau."))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var got struct {
		Filename      string `json:"filename"`
		FileSize      int    `json:"file_size"`
		ExtractedText string `json:"extracted_text"`
		TextLength    int    `json:"text_length"`
		Truncated     bool   `json:"truncated"`
		Message       string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "notes.txt", got.Filename)
	assert.Equal(t, len("Le cycle de l'eau."), got.FileSize)
	assert.Equal(t, "Le cycle de l'eau.", got.ExtractedText)
	assert.Equal(t, 18, got.TextLength)
	assert.False(t, got.Truncated)
	assert.NotEmpty(t, got.Message)
}

func TestUploadFile_Truncates(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, body := upload(t, app, "long.md", []byte(strings.Repeat("a", 60)))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, strings.Repeat("a", 50)+ingestion.TruncationMarker, got["extracted_text"])
	assert.Equal(t, float64(60), got["text_length"])
	assert.Equal(t, true, got["truncated"])
}

func TestUploadFile_Errors(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, body := upload(t, app, "setup.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), ".pdf")

	resp, _ = upload(t, app, "big.txt", bytes.Repeat([]byte("a"), 1025))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, body = upload(t, app, "blank.txt", []byte("   "))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "corrupted")

	resp, body = upload(t, app, "word97.doc", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "save the document as .docx")

	req := httptest.NewRequest("POST", "/api/upload-file", strings.NewReader("--x--\r\n"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	r, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestErrorHandler_EntityTooLargeIsJSON(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})
	app.Post("/api/oversized", func(c *fiber.Ctx) error {
		return fiber.ErrRequestEntityTooLarge
	})

	resp, body := doJSON(t, app, "POST", "/api/oversized", `{}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var got map[string]string
	require.NoError(t, json.Unmarshal(body, &got), string(body))
	assert.Contains(t, got["error"], "file too large")
}

func TestUnknownRouteIsJSON(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, body := doJSON(t, app, "GET", "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Cannot GET /api/nope"}`, string(body))
}

func TestAnalyzeFile(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "Le texte parle de l'eau."})

	resp, body := doJSON(t, app, "POST", "/api/analyze-file",
		`{"question":"Résume","extracted_text":"Le cycle de l'eau.","filename":"notes.txt"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, []string{"notes.txt"}, msg.Sources)
	require.NotNil(t, msg.TrustScore)
	assert.Equal(t, 0.9, *msg.TrustScore)

	resp, _ = doJSON(t, app, "POST", "/api/analyze-file", `{"question":"Résume","filename":"notes.txt"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubjectsHealthReady(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, body := doJSON(t, app, "GET", "/api/subjects", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var subjects map[string]struct {
		Name     string   `json:"name"`
		Subjects []string `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(body, &subjects))
	assert.Len(t, subjects, 4)
	assert.Contains(t, subjects["langues"].Subjects, "Français")

	resp, _ = doJSON(t, app, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, "GET", "/api/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ready"}`, string(body))
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := newTestApp(t, &stubCompleter{content: "ok"})

	resp, _ := doJSON(t, app, "GET", "/api/chat/ws", "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
