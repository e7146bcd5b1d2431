package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type recordingFuncs struct {
	lines []string
}

func (r *recordingFuncs) record(level string) LogFunc {
	return func(format string, args ...interface{}) {
		r.lines = append(r.lines, level+" "+fmt.Sprintf(format, args...))
	}
}

func TestNewLogger_PrefixAndLevels(t *testing.T) {
	rec := &recordingFuncs{}
	logger := NewLogger("module: rc, ", LogFuncs{
		Debugf: rec.record("D"),
		Infof:  rec.record("I"),
		Warnf:  rec.record("W"),
		Errorf: rec.record("E"),
	})

	logger.Debugf("a %d", 1)
	logger.Infof("b")
	logger.Warnf("c")
	logger.Errorf("d")
	logger.LogLevelf(LogLevelWarn, "e %s", "x")

	assert.Equal(t, []string{
		"D module: rc, a 1",
		"I module: rc, b",
		"W module: rc, c",
		"E module: rc, d",
		"W module: rc, e x",
	}, rec.lines)
}

func TestNewLogger_NilFuncsDropMessages(t *testing.T) {
	rec := &recordingFuncs{}
	logger := NewLogger("", LogFuncs{Errorf: rec.record("E")})

	logger.Infof("dropped")
	logger.Errorf("kept")

	assert.Equal(t, []string{"E kept"}, rec.lines)
}

func TestWithPrefix(t *testing.T) {
	rec := &recordingFuncs{}
	base := NewLogger("outer: ", LogFuncs{Infof: rec.record("I")})

	WithPrefix("inner: ", base).Infof("hello")

	assert.Equal(t, []string{"I outer: inner: hello"}, rec.lines)
}

func TestNewLogger_PrefixIsNotAFormat(t *testing.T) {
	rec := &recordingFuncs{}
	logger := WithPrefix("module: 100%d , ", NewLogger("", LogFuncs{Warnf: rec.record("W")}))

	logger.Warnf("exit code: %d", 3)

	assert.Equal(t, []string{"W module: 100%d , exit code: 3"}, rec.lines)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewZapLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mdnsadvertise.log")

	config := DefaultZapConfig()
	config.Level = "info"
	config.Format = "json"
	config.Output = path

	logger, err := NewZapLogger(config)
	require.NoError(t, err)

	logger.Debugf("below threshold")
	logger.Infof("advertisement %s", "started")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "advertisement started")
	assert.NotContains(t, string(data), "below threshold")
}

func TestNewZapLogger_InvalidLevel(t *testing.T) {
	config := DefaultZapConfig()
	config.Level = "loud"

	_, err := NewZapLogger(config)
	assert.Error(t, err)
}
