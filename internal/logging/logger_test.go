package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("worldgen", &buf, INFO)

	l.Debug("скрыто %d", 1)
	l.Info("фаза %s готова", "water")
	l.Error("ошибка")

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "[INFO] [worldgen] фаза water готова")
	assert.Contains(t, out, "[ERROR] [worldgen] ошибка")

	buf.Reset()
	l.SetLevel(DEBUG)
	l.Debug("видно")
	assert.Contains(t, buf.String(), "[DEBUG] [worldgen] видно")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace": TRACE,
		"DEBUG": DEBUG,
		"info":  INFO,
		"warn":  WARN,
		"error": ERROR,
		"":      INFO,
		"loud":  INFO,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestDefaultLoggerSwap(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewWriterLogger("", &buf, TRACE))
	t.Cleanup(CloseDefaultLogger)

	Trace("t")
	Warn("предупреждение %d", 7)
	assert.Contains(t, buf.String(), "[TRACE] t")
	assert.Contains(t, buf.String(), "[WARN] предупреждение 7")
}

func TestFileLogger(t *testing.T) {
	old := LogDir
	LogDir = t.TempDir()
	t.Cleanup(func() { LogDir = old })

	l, err := NewLogger("storage")
	require.NoError(t, err)
	l.SetLevel(ERROR)
	l.Debug("только в файл")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(LogDir, "storage_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [storage] только в файл")
}

func TestManagerReusesComponentLoggers(t *testing.T) {
	lm := GetLoggerManager()
	a := lm.MustGetLogger("test-component")
	b := GetComponentLogger("test-component")
	assert.Same(t, a, b)
	assert.Contains(t, lm.ListComponents(), "test-component")

	require.NoError(t, lm.SetLogLevel("test-component", WARN, WARN))
	assert.Error(t, lm.SetLogLevel("missing-component", WARN, WARN))
}
