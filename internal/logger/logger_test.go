package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleBackend(t *testing.T) {
	var buf bytes.Buffer
	Init(NewConsole(&buf, "info"))
	defer Init()

	Debug("hidden")
	Info("document committed", "path", "a.pdf")
	Warn("lookup failed", "type", "Organization")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "document committed")
	assert.Contains(t, out, "path=a.pdf")
	assert.Contains(t, out, "lookup failed")
}

func TestNoBackendIsSilent(t *testing.T) {
	Init()
	assert.NotPanics(t, func() { Info("nothing", "k", 1) })
}

func TestMask(t *testing.T) {
	assert.Equal(t, "*****", Mask("hello"))
	assert.Equal(t, "", Mask(""))
}
