package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "client:acme:agent", ClientKey("acme", "agent"))
	assert.Equal(t, "token:alice:srv", TokenKey("alice", "srv"))
	assert.Equal(t, "pending:alice:srv", PendingKey("alice", "srv"))
	assert.Equal(t, "state:abc", StateKey("abc"))
}

func TestMemoryStore_Consume(t *testing.T) {
	ctx := context.Background()
	memory := NewMemoryStore()
	assert.NoError(t, memory.Set(ctx, "pending:alice:srv", []byte(`{"state":"s1"}`)))

	value, ok, err := memory.Consume(ctx, "pending:alice:srv")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, value)

	// single-use: a second consume misses
	_, ok, err = memory.Consume(ctx, "pending:alice:srv")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ContextIsolation(t *testing.T) {
	ctx := context.Background()
	memory := NewMemoryStore()
	assert.NoError(t, memory.Set(ctx, TokenKey("alice", "srv"), []byte(`"alice-token"`)))
	assert.NoError(t, memory.Set(ctx, TokenKey("bob", "srv"), []byte(`"bob-token"`)))

	aliceValue, ok, err := memory.Get(ctx, TokenKey("alice", "srv"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"alice-token"`, string(aliceValue))

	bobValue, _, _ := memory.Get(ctx, TokenKey("bob", "srv"))
	assert.NotEqual(t, string(aliceValue), string(bobValue))
}

func TestFileStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	first, err := NewFileStore(path)
	assert.NoError(t, err)
	pending := &Pending{Verifier: "v1", State: "s1", CreatedAt: time.Now().UTC()}
	assert.NoError(t, SetJSON(ctx, first, PendingKey("alice", "srv"), pending))
	assert.NoError(t, first.Set(ctx, TokenKey("alice", "srv"), []byte(`{"access_token":"T1"}`)))

	// a fresh store over the same file sees the records
	second, err := NewFileStore(path)
	assert.NoError(t, err)
	restored := &Pending{}
	ok, err := GetJSON(ctx, second, PendingKey("alice", "srv"), restored)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", restored.Verifier)
	assert.Equal(t, "s1", restored.State)

	// consume removes durably
	_, ok, err = second.Consume(ctx, PendingKey("alice", "srv"))
	assert.NoError(t, err)
	assert.True(t, ok)
	third, err := NewFileStore(path)
	assert.NoError(t, err)
	_, ok, err = third.Get(ctx, PendingKey("alice", "srv"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_DeleteMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	fileStore, err := NewFileStore(path)
	assert.NoError(t, err)
	assert.NoError(t, fileStore.Delete(context.Background(), "token:missing:srv"))
}
