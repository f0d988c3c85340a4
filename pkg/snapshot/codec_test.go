package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/metadata"
	"github.com/aretw0/promptvault/pkg/tokens"
)

var fixedNow = time.Date(2024, 5, 1, 10, 30, 15, 123_000_000, time.UTC)

type library struct {
	prompts []core.Prompt
	notes   core.NoteMap
}

func (l library) Prompts() []core.Prompt { return core.ClonePrompts(l.prompts) }
func (l library) Notes() core.NoteMap    { return l.notes.Clone() }

func rating(n int) *int { return &n }

func newPrompt(t *testing.T, id, model string, r *int) core.Prompt {
	t.Helper()
	p := core.Prompt{ID: id, Title: "title " + id, Content: "content of " + id, CreatedAt: fixedNow.UnixMilli(), Rating: r}
	if model != "" {
		meta, err := metadata.NewTracker(metadata.WithClock(func() time.Time { return fixedNow })).Create(model, p.Content)
		require.NoError(t, err)
		p.Metadata = &meta
	}
	return p
}

func fixture(t *testing.T) library {
	return library{
		prompts: []core.Prompt{
			newPrompt(t, "a", "gpt-4o", rating(5)),
			newPrompt(t, "b", "", nil),
			newPrompt(t, "c", "claude", rating(2)),
		},
		notes: core.NoteMap{
			"a": {{NoteID: "n1", PromptID: "a", Text: "first", CreatedAt: 1, UpdatedAt: 1}},
			"c": {
				{NoteID: "n1", PromptID: "c", Text: "same id, other prompt", CreatedAt: 2, UpdatedAt: 3},
				{NoteID: "n2", PromptID: "c", Text: "second", CreatedAt: 4, UpdatedAt: 4},
			},
		},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	lib := fixture(t)
	for name, format := range map[string]Format{"json": JSONFormat{}, "yaml": YAMLFormat{}} {
		t.Run(name, func(t *testing.T) {
			codec := New(WithClock(func() time.Time { return fixedNow }), WithFormat(format))

			data, err := codec.Export(lib)
			require.NoError(t, err)

			decoded, err := codec.Decode(data)
			require.NoError(t, err)
			assert.Empty(t, decoded.DroppedGroups)

			snap := decoded.Snapshot
			assert.Equal(t, core.SnapshotVersion, snap.Version)
			assert.Equal(t, "2024-05-01T10:30:15.123Z", snap.ExportedAt)
			assert.Equal(t, lib.prompts, snap.Prompts)
			assert.Equal(t, lib.notes, snap.Notes)
			assert.Equal(t, 3, snap.Stats.TotalPrompts)
		})
	}
}

func TestCodec_EncodePrunesOrphans(t *testing.T) {
	lib := fixture(t)
	lib.notes["ghost"] = []core.Note{{NoteID: "x", PromptID: "ghost", Text: "orphan"}}

	snap, err := New().Encode(lib)
	require.NoError(t, err)
	assert.NotContains(t, snap.Notes, "ghost")
	assert.Len(t, snap.Notes, 2)
}

func TestCodec_EncodeAbortsOnInvalidPrompt(t *testing.T) {
	lib := fixture(t)
	lib.prompts[1].Metadata = &core.Metadata{Model: "", CreatedAt: "yesterday"}

	_, err := New().Encode(lib)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExportAborted)
	assert.NotErrorIs(t, err, core.ErrSnapshotInvalid)
}

func TestCodec_DecodeErrors(t *testing.T) {
	codec := New()

	_, err := codec.Decode([]byte("{not json"))
	assert.ErrorIs(t, err, core.ErrParse)

	_, err = codec.Decode([]byte(`{"version":2,"prompts":[],"notes":{}}`))
	assert.ErrorIs(t, err, core.ErrSnapshotInvalid)
	assert.NotErrorIs(t, err, core.ErrParse)
}

func TestCodec_DecodeReportsDroppedGroups(t *testing.T) {
	data := []byte(`{
		"version": 1,
		"exportedAt": "2024-05-01T10:30:15.123Z",
		"stats": {"totalPrompts": 99, "averageRating": 1, "mostUsedModel": "bogus"},
		"prompts": [{"id":"a","title":"t","content":"c","createdAt":1,"rating":4}],
		"notes": {"zeta": [], "a": [], "alpha": []}
	}`)

	decoded, err := New().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, decoded.DroppedGroups)
	assert.Equal(t, core.Stats{TotalPrompts: 1, AverageRating: 4}, decoded.Snapshot.Stats)
}

func TestCodec_DecodeRecomputesTokenEstimate(t *testing.T) {
	data := []byte(`{
		"version": 1,
		"prompts": [{
			"id": "a", "title": "t", "content": "hello world", "createdAt": 1,
			"metadata": {
				"model": "gpt-4o",
				"createdAt": "2024-05-01T10:00:00.000Z",
				"updatedAt": "2024-05-01T10:00:00.000Z",
				"tokenEstimate": {"min": 0, "max": 999, "confidence": "high"}
			}
		}],
		"notes": {}
	}`)

	decoded, err := New().Decode(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Snapshot.Prompts[0].Metadata)
	assert.Equal(t, tokens.For("hello world"), decoded.Snapshot.Prompts[0].Metadata.TokenEstimate)
	assert.Equal(t, tokens.Estimate{Min: 2, Max: 3, Confidence: tokens.ConfidenceHigh}, decoded.Snapshot.Prompts[0].Metadata.TokenEstimate)
}

func TestComputeStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, core.Stats{}, ComputeStats(nil))
	})

	t.Run("average rounds to two decimals with unrated as zero", func(t *testing.T) {
		stats := ComputeStats([]core.Prompt{
			{ID: "1", Rating: rating(5)},
			{ID: "2", Rating: rating(0)},
			{ID: "3"},
		})
		assert.Equal(t, 1.67, stats.AverageRating)
		assert.Nil(t, stats.MostUsedModel)
	})

	t.Run("most used model breaks ties by first seen", func(t *testing.T) {
		with := func(model string) core.Prompt {
			return core.Prompt{Metadata: &core.Metadata{Model: model}}
		}
		stats := ComputeStats([]core.Prompt{with("b"), with("a"), with("a"), with("b"), with("c")})
		require.NotNil(t, stats.MostUsedModel)
		assert.Equal(t, "b", *stats.MostUsedModel)

		stats = ComputeStats([]core.Prompt{with("b"), with("a"), with("a")})
		assert.Equal(t, "a", *stats.MostUsedModel)
	})
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "prompt-library-export-2024-05-01T10-30-15-123Z.json", Filename(fixedNow))
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("backup.YAML")
	require.NoError(t, err)
	assert.IsType(t, YAMLFormat{}, f)

	f, err = FormatFor("export")
	require.NoError(t, err)
	assert.IsType(t, JSONFormat{}, f)

	_, err = FormatFor("notes.csv")
	assert.Error(t, err)
}

func TestYAMLFormat_NormalisesNumbers(t *testing.T) {
	v, err := YAMLFormat{}.Unmarshal([]byte("version: 1\nprompts: []\nnotes: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, float64(1), v.(map[string]any)["version"])
}
