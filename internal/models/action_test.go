package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleActions() ActionList {
	return ActionList{
		MouseAction{
			ActionMeta: ActionMeta{Selector: "#save", TextContent: "Save", Timestamp: 1000},
			EventType:  "click",
			X:          12, Y: 34,
			Modifiers: Modifiers{Ctrl: true},
		},
		KeyboardAction{
			ActionMeta: ActionMeta{Selector: `input[name="q"]`, Timestamp: 2000},
			EventType:  "keydown",
			Key:        "Enter",
		},
		ScriptAction{
			ActionMeta:   ActionMeta{Timestamp: 3000},
			Name:         "dismiss-banner",
			Code:         "banner.close()",
			CompiledCode: "banner.close();",
			FrameHref:    "https://app.example.com/frame",
		},
	}
}

func TestActionListRoundTrip(t *testing.T) {
	in := sampleActions()
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := ParseActionList(data)
	require.NoError(t, err)
	require.Len(t, out, 3)

	mouse, ok := out[0].(MouseAction)
	require.True(t, ok)
	assert.Equal(t, "click", mouse.EventType)
	assert.Equal(t, "#save", mouse.Selector)
	assert.True(t, mouse.Modifiers.Ctrl)

	kb, ok := out[1].(KeyboardAction)
	require.True(t, ok)
	assert.Equal(t, "Enter", kb.Key)

	script, ok := out[2].(ScriptAction)
	require.True(t, ok)
	assert.Equal(t, "https://app.example.com/frame", script.FrameHref)
	assert.Equal(t, "banner.close();", script.CompiledCode)
}

func TestActionListUnknownKind(t *testing.T) {
	_, err := ParseActionList([]byte(`[{"kind":"teleport","body":{}}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestActionKindTags(t *testing.T) {
	in := sampleActions()
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var envs []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &envs))
	require.Len(t, envs, 3)

	var kinds []string
	for _, env := range envs {
		var k string
		require.NoError(t, json.Unmarshal(env["kind"], &k))
		kinds = append(kinds, k)
	}
	assert.Equal(t, []string{"mouse", "keyboard", "script"}, kinds)
}

func TestRecordActionsRoundTrip(t *testing.T) {
	rec := NewRecord("smoke test")
	require.NoError(t, rec.SetActions(sampleActions()))

	out, err := rec.GetActions()
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestRecordUIDFromTimestamp(t *testing.T) {
	rec := NewRecord("named")
	assert.Equal(t, UIDFromTimestamp(rec.CreateTimestamp), rec.UID)
	assert.Equal(t, "rec-1700000000000", UIDFromTimestamp(1700000000000))
}

func TestEmptyActionsDecodeToNil(t *testing.T) {
	rec := NewRecord("empty")
	out, err := rec.GetActions()
	require.NoError(t, err)
	assert.Nil(t, out)
}
