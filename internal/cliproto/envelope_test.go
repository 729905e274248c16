package cliproto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vifei-systems/vifei/internal/cliproto"
)

func TestNewPinsExitCodeToCode(t *testing.T) {
	cases := []struct {
		code     cliproto.Code
		wantExit cliproto.ExitCode
		wantOK   bool
	}{
		{cliproto.CodeOK, cliproto.ExitSuccess, true},
		{cliproto.CodeNotFound, cliproto.ExitNotFound, false},
		{cliproto.CodeInvalidArgs, cliproto.ExitInvalidArgs, false},
		{cliproto.CodeExportRefused, cliproto.ExitExportRefused, false},
		{cliproto.CodeRuntimeError, cliproto.ExitRuntimeError, false},
		{cliproto.CodeDiffFound, cliproto.ExitDiffFound, false},
	}
	for _, c := range cases {
		env := cliproto.New(c.code, "msg", nil)
		assert.Equal(t, c.wantExit, env.ExitCode, c.code)
		assert.Equal(t, c.wantOK, env.OK, c.code)
	}
}

func TestEnvelopeMarshalsExpectedShape(t *testing.T) {
	env := cliproto.New(cliproto.CodeInvalidArgs, "Unknown subcommand.", []string{"Try: vifei view <path>"}).
		WithCommand("bogus-subcommand")

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cliproto.SchemaVersion, decoded["schema_version"])
	assert.Equal(t, false, decoded["ok"])
	assert.Equal(t, "INVALID_ARGS", decoded["code"])
	assert.Equal(t, float64(2), decoded["exit_code"])
	assert.Equal(t, "bogus-subcommand", decoded["command"])
	assert.NotContains(t, decoded, "data")
	assert.NotContains(t, decoded, "notes")
}

func TestEnvelopeOmitsCommandDataNotesWhenAbsent(t *testing.T) {
	env := cliproto.New(cliproto.CodeOK, "ok", []string{})
	data, err := json.Marshal(env)
	require.NoError(t, err)
	body := string(data)
	assert.NotContains(t, body, `"command"`)
	assert.NotContains(t, body, `"data"`)
	assert.NotContains(t, body, `"notes"`)
}

func TestWithDataAndNotesAttachFields(t *testing.T) {
	env := cliproto.New(cliproto.CodeOK, "ok", nil).
		WithData(map[string]string{"quick_help": "try vifei view"}).
		WithNotes("first note", "second note")

	data, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "try vifei view", decoded["data"].(map[string]any)["quick_help"])
	assert.Equal(t, []any{"first note", "second note"}, decoded["notes"])
}
