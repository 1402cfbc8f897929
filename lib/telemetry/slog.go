package telemetry

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/mazen160/go-random"
)

// InitSlog installs a tint handler on stderr as the default logger,
// stdout is left alone since that is where command output goes.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
}

// WithRunId tags every record of the default logger with a short random id
// so the log lines of one invocation can be told apart.
func WithRunId() string {
	id, err := random.String(8)
	if err != nil {
		slog.Warn("failed to generate run id", "err", err)
		return ""
	}
	slog.SetDefault(slog.Default().With("run_id", id))
	return id
}
