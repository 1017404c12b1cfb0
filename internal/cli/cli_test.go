package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg, err := Init("test-tool")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestInit_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("bad config", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		_, err := Init("test-tool")
		assert.ErrorContains(t, err, "failed to load configuration")
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		_, err := Init("test-tool")
		assert.ErrorContains(t, err, "failed to set up logging")
	})
}

type closeRecorder struct {
	name   string
	closed *[]string
	err    error
}

func (c closeRecorder) Close() error {
	*c.closed = append(*c.closed, c.name)
	return c.err
}

func TestFatal_ClosesBeforeExit(t *testing.T) {
	var closed []string
	code := -1
	prev := exit
	exit = func(c int) {
		closed = append(closed, "exit")
		code = c
	}
	t.Cleanup(func() { exit = prev })

	Fatal("boom", assert.AnError,
		closeRecorder{name: "db", closed: &closed},
		closeRecorder{name: "file", closed: &closed, err: assert.AnError})

	assert.Equal(t, 1, code)
	assert.Equal(t, []string{"db", "file", "exit"}, closed)
}
