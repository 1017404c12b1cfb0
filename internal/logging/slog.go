package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/oklog/ulid/v2"
)

// Setup installs the default slog logger for a tool run and returns it
// tagged with the tool name and a fresh run id.
//
// format "json" writes JSON lines; anything else writes tinted console output.
// Logs go to stderr so the summary on stdout stays clean.
func Setup(tool, level, format string) (*slog.Logger, error) {
	logger, err := New(os.Stderr, level, format)
	if err != nil {
		return nil, err
	}
	logger = logger.With("tool", tool, "run_id", ulid.Make().String())
	slog.SetDefault(logger)
	return logger, nil
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: logLevel == slog.LevelDebug,
		})), nil
	}

	modulePrefix := getModulePrefix()
	replacer := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			if source, ok := a.Value.Any().(*slog.Source); ok {
				source.File = cleanSourcePath(source.File, modulePrefix)
			}
		}
		if err, ok := a.Value.Any().(error); ok {
			aErr := tint.Err(err)
			aErr.Key = a.Key
			return aErr
		}
		return a
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       logLevel,
		TimeFormat:  time.TimeOnly,
		ReplaceAttr: replacer,
		AddSource:   logLevel == slog.LevelDebug,
		NoColor:     !isTerminal(w),
	})), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// getModulePrefix extracts the module path from runtime build info
// and returns a prefix that can be used to clean source paths
func getModulePrefix() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Path == "" {
		if wd, err := os.Getwd(); err == nil {
			return "/" + filepath.Base(wd) + "/"
		}
		return "/softeng-platform/"
	}

	// e.g., "github.com/Keranthos/softeng-platform" -> "/softeng-platform/"
	parts := strings.Split(info.Main.Path, "/")
	return "/" + parts[len(parts)-1] + "/"
}

// cleanSourcePath removes the module prefix from the file path to make logs more readable
func cleanSourcePath(filePath, modulePrefix string) string {
	parts := strings.Split(filePath, modulePrefix)
	if len(parts) == 2 {
		return parts[1]
	}

	cleaned := filePath
	if idx := strings.LastIndex(cleaned, "/go/src/"); idx != -1 {
		cleaned = cleaned[idx+8:]
	} else if idx := strings.LastIndex(cleaned, "/src/"); idx != -1 {
		cleaned = cleaned[idx+5:]
	}

	return cleaned
}
