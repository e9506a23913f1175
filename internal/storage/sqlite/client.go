package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/storage/models"
	"github.com/wikiai/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		response TEXT NOT NULL,
		message_type TEXT NOT NULL,
		trust_score REAL,
		sources TEXT,
		downloadable INTEGER NOT NULL DEFAULT 0,
		degraded INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_session_created ON chat_messages(session_id, created_at);
	`

	_, err := c.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, session_id, message, response, message_type, trust_score, sources, downloadable, degraded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var sources sql.NullString
	if msg.Sources != nil {
		b, err := json.Marshal(msg.Sources)
		if err != nil {
			return fmt.Errorf("failed to encode sources: %w", err)
		}
		sources = sql.NullString{String: string(b), Valid: true}
	}

	var trustScore sql.NullFloat64
	if msg.TrustScore != nil {
		trustScore = sql.NullFloat64{Float64: *msg.TrustScore, Valid: true}
	}

	_, err := c.db.ExecContext(ctx,
		query,
		msg.ID,
		msg.SessionID,
		msg.Message,
		msg.Response,
		msg.MessageType,
		trustScore,
		sources,
		msg.Downloadable,
		msg.Degraded,
		msg.Timestamp.UnixNano(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}

	logger.Debug("Chat message inserted", zap.String("id", msg.ID), zap.String("session_id", msg.SessionID))
	return nil
}

// ListBySession returns the oldest limit messages of a session in creation order, never nil.
func (c *Client) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, session_id, message, response, message_type, trust_score, sources, downloadable, degraded, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var (
			msg        models.ChatMessage
			trustScore sql.NullFloat64
			sources    sql.NullString
			createdAt  int64
		)

		err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Message,
			&msg.Response,
			&msg.MessageType,
			&trustScore,
			&sources,
			&msg.Downloadable,
			&msg.Degraded,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}

		if trustScore.Valid {
			score := trustScore.Float64
			msg.TrustScore = &score
		}
		if sources.Valid {
			if err := json.Unmarshal([]byte(sources.String), &msg.Sources); err != nil {
				return nil, fmt.Errorf("failed to decode sources: %w", err)
			}
		}
		msg.Timestamp = time.Unix(0, createdAt).UTC()

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat history: %w", err)
	}

	return messages, nil
}
