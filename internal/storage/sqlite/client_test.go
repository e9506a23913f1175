package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikiai/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "nested", "wikiai.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.InitSchema(context.Background()))
	return c
}

func TestInsertAndListBySession(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	score := 0.95
	second := &models.ChatMessage{
		ID: "b", SessionID: "s1", Message: "q2", Response: "r2", MessageType: "sources_fiables",
		TrustScore: &score, Sources: []string{"notes.pdf"}, Timestamp: base.Add(time.Minute), Downloadable: true,
	}
	first := &models.ChatMessage{
		ID: "a", SessionID: "s1", Message: "q1", Response: "r1", MessageType: "je_veux",
		Timestamp: base, Degraded: true,
	}
	other := &models.ChatMessage{ID: "c", SessionID: "s2", Message: "x", Response: "y", MessageType: "je_veux", Timestamp: base}

	require.NoError(t, c.InsertChatMessage(ctx, second))
	require.NoError(t, c.InsertChatMessage(ctx, first))
	require.NoError(t, c.InsertChatMessage(ctx, other))

	got, err := c.ListBySession(ctx, "s1", models.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ID)
	assert.Nil(t, got[0].TrustScore)
	assert.Nil(t, got[0].Sources)
	assert.True(t, got[0].Degraded)
	assert.True(t, got[0].Timestamp.Equal(base))

	assert.Equal(t, "b", got[1].ID)
	require.NotNil(t, got[1].TrustScore)
	assert.Equal(t, 0.95, *got[1].TrustScore)
	assert.Equal(t, []string{"notes.pdf"}, got[1].Sources)
	assert.True(t, got[1].Downloadable)
	assert.False(t, got[1].Degraded)
}

func TestListBySession_UnknownSessionIsEmpty(t *testing.T) {
	c := newTestClient(t)

	got, err := c.ListBySession(context.Background(), "nobody", models.HistoryLimit)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListBySession_Limit(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 105; i++ {
		msg := &models.ChatMessage{
			ID: fmt.Sprintf("m%03d", i), SessionID: "s", Message: "q", Response: "r",
			MessageType: "je_veux", Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, c.InsertChatMessage(ctx, msg))
	}

	got, err := c.ListBySession(ctx, "s", models.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.Equal(t, "m000", got[0].ID)
	assert.Equal(t, "m099", got[99].ID)
}

func TestInsertChatMessage_DuplicateID(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	msg := &models.ChatMessage{ID: "dup", SessionID: "s", Message: "q", Response: "r", MessageType: "je_veux", Timestamp: time.Now()}

	require.NoError(t, c.InsertChatMessage(ctx, msg))
	assert.Error(t, c.InsertChatMessage(ctx, msg))
}

func TestPing(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.Ping(context.Background()))
}
