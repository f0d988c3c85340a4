package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/tokens"
)

func parse(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

const validPrompt = `{
	"id": "p1",
	"title": "Summarise",
	"content": "Summarise this text",
	"createdAt": 1714557600000,
	"rating": 4,
	"metadata": {
		"model": "gpt-4o",
		"createdAt": "2024-05-01T10:00:00.000Z",
		"updatedAt": "2024-05-01T10:00:00.000Z",
		"tokenEstimate": {"min": 3, "max": 5, "confidence": "high"}
	}
}`

func TestValidatePrompt(t *testing.T) {
	assert.True(t, ValidatePrompt(parse(t, validPrompt)))
	assert.True(t, ValidatePrompt(parse(t, `{"id":"p","title":"","content":"","createdAt":0}`)), "rating and metadata are optional")
	assert.True(t, ValidatePrompt(parse(t, `{"id":"p","title":"t","content":"c","createdAt":1,"rating":null,"metadata":null}`)))

	invalid := map[string]string{
		"not an object":      `"p1"`,
		"missing id":         `{"title":"t","content":"c","createdAt":1}`,
		"blank id":           `{"id":"  ","title":"t","content":"c","createdAt":1}`,
		"numeric title":      `{"id":"p","title":7,"content":"c","createdAt":1}`,
		"string createdAt":   `{"id":"p","title":"t","content":"c","createdAt":"yesterday"}`,
		"rating above five":  `{"id":"p","title":"t","content":"c","createdAt":1,"rating":6}`,
		"fractional rating":  `{"id":"p","title":"t","content":"c","createdAt":1,"rating":2.5}`,
		"metadata no model":  `{"id":"p","title":"t","content":"c","createdAt":1,"metadata":{"createdAt":"2024-05-01T10:00:00.000Z","updatedAt":"2024-05-01T10:00:00.000Z","tokenEstimate":{"min":0,"max":0,"confidence":"high"}}}`,
		"metadata bad stamp": `{"id":"p","title":"t","content":"c","createdAt":1,"metadata":{"model":"m","createdAt":"2024-05-01","updatedAt":"2024-05-01T10:00:00.000Z","tokenEstimate":{"min":0,"max":0,"confidence":"high"}}}`,
		"metadata reversed":  `{"id":"p","title":"t","content":"c","createdAt":1,"metadata":{"model":"m","createdAt":"2024-05-02T10:00:00.000Z","updatedAt":"2024-05-01T10:00:00.000Z","tokenEstimate":{"min":0,"max":0,"confidence":"high"}}}`,
	}
	for name, doc := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.False(t, ValidatePrompt(parse(t, doc)))
		})
	}
}

func TestValidatePrompt_Typed(t *testing.T) {
	r := 3
	p := core.Prompt{
		ID: "p1", Title: "t", Content: "c", CreatedAt: 1, Rating: &r,
		Metadata: &core.Metadata{
			Model:         "m",
			CreatedAt:     "2024-05-01T10:00:00.000Z",
			UpdatedAt:     "2024-05-01T10:00:00.000Z",
			TokenEstimate: tokens.Estimate{Min: 1, Max: 1, Confidence: tokens.ConfidenceHigh},
		},
	}
	assert.True(t, ValidatePrompt(p))

	p.Metadata.Model = ""
	assert.False(t, ValidatePrompt(&p))
}

func TestValidateNote(t *testing.T) {
	note := parse(t, `{"noteId":"n1","promptId":"p1","text":"works well","createdAt":1,"updatedAt":2}`)
	assert.True(t, ValidateNote(note, "p1"))
	assert.False(t, ValidateNote(note, "p2"), "promptId must match the group key")

	assert.False(t, ValidateNote(parse(t, `{"promptId":"p1","text":"x"}`), "p1"))
	assert.False(t, ValidateNote(parse(t, `{"noteId":"n","promptId":"p1","text":"   "}`), "p1"))
	assert.False(t, ValidateNote(parse(t, `{"noteId":"n","promptId":"p1","text":"x","createdAt":5,"updatedAt":4}`), "p1"))
	assert.False(t, ValidateNote(parse(t, `["n"]`), "p1"))
	assert.False(t, ValidateNote(parse(t, `{"noteId":"n","promptId":"p1","text":"x","pinned":true}`), "p1"))
}

func TestValidateNote_GoValues(t *testing.T) {
	note := map[string]any{"noteId": "n1", "promptId": "p1", "text": "x", "createdAt": 5, "updatedAt": 4}
	err := CheckNote(note, "p1")
	assert.ErrorIs(t, err, core.ErrTimestampOrdering)

	note["updatedAt"] = int64(6)
	assert.True(t, ValidateNote(note, "p1"))
	assert.True(t, ValidateNote(core.Note{NoteID: "n1", PromptID: "p1", Text: "x", CreatedAt: 1, UpdatedAt: 1}, "p1"))
}

func TestValidateSnapshot(t *testing.T) {
	doc := `{
		"version": 1,
		"exportedAt": "2024-05-01T10:00:00.000Z",
		"stats": {"totalPrompts": "stale"},
		"prompts": [` + validPrompt + `],
		"notes": {
			"p1": [{"noteId":"n1","promptId":"p1","text":"keep","createdAt":1,"updatedAt":1}],
			"ghost": [{"noteId":"n2","promptId":"ghost","text":"orphan"}],
			"another-ghost": "not even an array"
		}
	}`

	res, err := ValidateSnapshot(parse(t, doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"another-ghost", "ghost"}, res.DroppedGroups)
	require.Len(t, res.Snapshot.Prompts, 1)
	assert.Equal(t, "p1", res.Snapshot.Prompts[0].ID)
	assert.Equal(t, 4, res.Snapshot.Prompts[0].RatingValue())
	assert.Contains(t, res.Snapshot.Notes, "p1")
	assert.NotContains(t, res.Snapshot.Notes, "ghost")
	assert.Equal(t, "keep", res.Snapshot.Notes["p1"][0].Text)
}

func TestValidateSnapshot_UnsupportedVersion(t *testing.T) {
	_, err := ValidateSnapshot(parse(t, `{"version":2,"prompts":[],"notes":{}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSnapshotInvalid)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestValidateSnapshot_GoValues(t *testing.T) {
	assert.NotPanics(t, func() {
		_, err := ValidateSnapshot(map[string]any{"version": 2, "prompts": []any{}, "notes": map[string]any{}})
		assert.ErrorIs(t, err, core.ErrSnapshotInvalid)
	})

	var prompt core.Prompt
	require.NoError(t, json.Unmarshal([]byte(validPrompt), &prompt))
	candidate := map[string]any{
		"version": core.SnapshotVersion,
		"prompts": []core.Prompt{prompt},
		"notes": map[string][]core.Note{
			"p1":    {{NoteID: "n1", PromptID: "p1", Text: "typed", CreatedAt: 1, UpdatedAt: 2}},
			"ghost": {{NoteID: "n2", PromptID: "ghost", Text: "orphan"}},
		},
	}
	res, err := ValidateSnapshot(candidate)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, res.DroppedGroups)
	require.Len(t, res.Snapshot.Prompts, 1)
	assert.Equal(t, "typed", res.Snapshot.Notes["p1"][0].Text)

	_, err = ValidateSnapshot(&core.Snapshot{Version: 2, Prompts: []core.Prompt{}, Notes: core.NoteMap{}})
	assert.ErrorIs(t, err, core.ErrSnapshotInvalid)
}

func TestValidateSnapshot_Rejects(t *testing.T) {
	cases := map[string]string{
		"root array":          `[]`,
		"missing version":     `{"prompts":[],"notes":{}}`,
		"string version":      `{"version":"1","prompts":[],"notes":{}}`,
		"prompts not array":   `{"version":1,"prompts":{},"notes":{}}`,
		"notes not object":    `{"version":1,"prompts":[],"notes":[]}`,
		"one bad prompt":      `{"version":1,"prompts":[` + validPrompt + `,{"id":""}],"notes":{}}`,
		"duplicate prompt id": `{"version":1,"prompts":[` + validPrompt + `,` + validPrompt + `],"notes":{}}`,
		"group not array":     `{"version":1,"prompts":[` + validPrompt + `],"notes":{"p1":{}}}`,
		"mismatched promptId": `{"version":1,"prompts":[` + validPrompt + `],"notes":{"p1":[{"noteId":"n","promptId":"p2","text":"x"}]}}`,
		"duplicate noteId":    `{"version":1,"prompts":[` + validPrompt + `],"notes":{"p1":[{"noteId":"n","promptId":"p1","text":"x"},{"noteId":"n","promptId":"p1","text":"y"}]}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateSnapshot(parse(t, doc))
			assert.ErrorIs(t, err, core.ErrSnapshotInvalid)
		})
	}
}

func TestValidateSnapshot_EmptyLibrary(t *testing.T) {
	res, err := ValidateSnapshot(parse(t, `{"version":1,"prompts":[],"notes":{}}`))
	require.NoError(t, err)
	assert.Empty(t, res.Snapshot.Prompts)
	assert.NotNil(t, res.Snapshot.Prompts)
	assert.NotNil(t, res.Snapshot.Notes)
	assert.Empty(t, res.DroppedGroups)
}
