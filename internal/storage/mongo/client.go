package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/wikiai/backend/internal/storage/models"
	"github.com/wikiai/backend/pkg/config"
	"github.com/wikiai/backend/pkg/logger"
)

const connectTimeout = 10 * time.Second

type Client struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewClient(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("MongoDB client initialized",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)

	return &Client{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) InitSchema(ctx context.Context) error {
	_, err := c.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}},
		Options: options.Index().SetName("session_timestamp"),
	})
	if err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}

	logger.Info("MongoDB indexes ensured")
	return nil
}

func (c *Client) InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	if _, err := c.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}

	logger.Debug("Chat message inserted", zap.String("id", msg.ID), zap.String("session_id", msg.SessionID))
	return nil
}

// ListBySession returns the oldest limit messages of a session in creation order, never nil.
func (c *Client) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	cursor, err := c.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]models.ChatMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}

	return normalizeHistory(messages), nil
}

// normalizeHistory matches the sqlite store: UTC timestamps and a non-nil sources list,
// including for documents written before sources was always stored.
func normalizeHistory(messages []models.ChatMessage) []models.ChatMessage {
	if messages == nil {
		return make([]models.ChatMessage, 0)
	}
	for i := range messages {
		messages[i].Timestamp = messages[i].Timestamp.UTC()
		if messages[i].Sources == nil {
			messages[i].Sources = []string{}
		}
	}
	return messages
}
