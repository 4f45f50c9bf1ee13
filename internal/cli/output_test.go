package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &Formatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "done"}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &Formatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeParse, "compilation failed", nil))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
}

func TestFormatter_TextSuccessf(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &Formatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Successf(nil, "did %d thing(s)", 3))
	assert.Equal(t, "did 3 thing(s)\n", buf.String())
}

func TestFormatter_TextErrorVerboseDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &Formatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error(ErrCodeStore, "open failed", "disk full"))
	out := buf.String()
	assert.Contains(t, out, "Error [E004]: open failed")
	assert.Contains(t, out, "Details: disk full")
}

func TestFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	formatter := &Formatter{Format: "json", Writer: outBuf, ErrWriter: errBuf, Verbose: true}

	formatter.VerboseLog("loaded %d record(s)", 7)
	assert.Empty(t, outBuf.String(), "diagnostics must not pollute stdout")
	assert.Equal(t, "loaded 7 record(s)\n", errBuf.String())
}

func TestFormatter_VerboseLogSilentByDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &Formatter{Format: "text", Writer: buf}

	formatter.VerboseLog("noise")
	assert.Empty(t, buf.String())
}

func TestExitError(t *testing.T) {
	base := errors.New("boom")
	err := WrapExitError(ExitFailure, "cycle failed", base)

	assert.Equal(t, "cycle failed: boom", err.Error())
	assert.ErrorIs(t, err, base, "wrapping should preserve the cause")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")), "plain errors default to failure")
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad usage")))
}
