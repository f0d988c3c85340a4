package platform

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/promptvault/pkg/adapters/fs"
	"github.com/aretw0/promptvault/pkg/adapters/memory"
	"github.com/aretw0/promptvault/pkg/adapters/sqlite"
	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/snapshot"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}

func TestNew_Adapters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		uri     string
		adapter string
		check   func(t *testing.T, s core.Store)
	}{
		{"fs", filepath.Join(dir, "lib"), AdapterFS, func(t *testing.T, s core.Store) {
			assert.IsType(t, &fs.Store{}, s)
		}},
		{"sqlite", filepath.Join(dir, "db", "library.db"), AdapterSQLite, func(t *testing.T, s core.Store) {
			assert.IsType(t, &sqlite.Store{}, s)
		}},
		{"memory", "", AdapterMemory, func(t *testing.T, s core.Store) {
			assert.IsType(t, &memory.Store{}, s)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := New(ctx, tt.uri, WithAdapter(tt.adapter), WithClock(fixedClock))
			require.NoError(t, err)
			defer Close(svc)

			tt.check(t, svc.Library().Store())

			p, err := svc.AddPrompt(ctx, "Greeting", "Say hello", "gpt-4")
			require.NoError(t, err)
			assert.Equal(t, "2024-05-01T10:00:00.000Z", p.Metadata.CreatedAt)
		})
	}
}

func TestNew_ReopenFS(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lib")

	svc, err := New(ctx, path)
	require.NoError(t, err)
	p, err := svc.AddPrompt(ctx, "Title", "Content", "claude")
	require.NoError(t, err)

	reopened, err := New(ctx, path, WithReadOnly(true))
	require.NoError(t, err)
	got, err := reopened.GetPrompt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = reopened.AddPrompt(ctx, "Other", "Content", "claude")
	assert.ErrorIs(t, err, core.ErrReadOnly)
}

func TestNew_MustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := New(context.Background(), missing, WithMustExist(true))
	assert.Error(t, err)
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))

	_, err = New(context.Background(), missing+".db", WithAdapter(AdapterSQLite), WithReadOnly(true))
	assert.Error(t, err)
}

func TestNew_UnknownAdapter(t *testing.T) {
	_, err := New(context.Background(), "", WithAdapter("s3"))
	assert.ErrorContains(t, err, "unknown adapter")
}

func TestNew_InjectedStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, core.KeyPrompts, []byte(`[]`)))

	svc, err := New(ctx, "ignored", WithStore(store), WithAdapter("s3"))
	require.NoError(t, err)
	assert.Same(t, store, svc.Library().Store())
}

func TestNewEngine_PublishesToService(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, "", WithAdapter(AdapterMemory), WithClock(fixedClock))
	require.NoError(t, err)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := svc.Subscribe(subCtx)

	engine := NewEngine(svc, WithDecisionTimeout(time.Second))
	err = svc.Write(func(lib *core.Library) error {
		_, err := engine.Replace(ctx, lib, &snapshot.Decoded{Snapshot: &core.Snapshot{
			Version: core.SnapshotVersion,
			Prompts: []core.Prompt{},
			Notes:   core.NoteMap{},
		}})
		return err
	})
	require.NoError(t, err)

	select {
	case e := <-events:
		assert.Equal(t, core.EventReplace, e.Type)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for replace event")
	}
}
