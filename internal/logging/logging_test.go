package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(&Config{Level: LevelDebug, Output: &buf})
	t.Cleanup(func() { Init(nil) })
	return &buf
}

func TestKeyValueCalls(t *testing.T) {
	buf := capture(t)
	L_info("state: autosave written", "key", "legal_intake_draft", "bytes", 42)
	out := buf.String()
	assert.Contains(t, out, "state: autosave written")
	assert.Contains(t, out, "key=legal_intake_draft")
	assert.Contains(t, out, "bytes=42")
}

func TestPrintfCalls(t *testing.T) {
	buf := capture(t)
	L_warn("upload: %s is %d bytes too large", "scan.pdf", 1024)
	assert.Contains(t, buf.String(), "upload: scan.pdf is 1024 bytes too large")
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelWarn)
	L_debug("hidden")
	L_error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("TRACE"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}
