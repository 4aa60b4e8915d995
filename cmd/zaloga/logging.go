package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// levelRouter is a slog.Handler that sends records below ERROR to one
// handler and ERROR+ to another.
type levelRouter struct {
	min  slog.Level
	info slog.Handler
	errs slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.min
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.errs.Handle(ctx, r)
	}
	return lr.info.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		min:  lr.min,
		info: lr.info.WithAttrs(attrs),
		errs: lr.errs.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		min:  lr.min,
		info: lr.info.WithGroup(name),
		errs: lr.errs.WithGroup(name),
	}
}

// setupLogger installs the default logger. Records below ERROR go to infoW,
// ERROR+ to errW; the CLI passes stderr for both so stdout carries only
// command output. If logPath is non-empty, records below ERROR go only to
// that file and errors to both the file and errW. Returns a cleanup
// function that closes the log file (if opened).
func setupLogger(level slog.Level, logPath string, infoW, errW io.Writer) (func(), error) {
	opts := &slog.HandlerOptions{Level: level}

	cleanup := func() {}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		infoW = f
		errW = io.MultiWriter(errW, f)
	}

	slog.SetDefault(slog.New(&levelRouter{
		min:  level,
		info: slog.NewTextHandler(infoW, opts),
		errs: slog.NewTextHandler(errW, opts),
	}))
	return cleanup, nil
}
