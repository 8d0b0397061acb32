package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/picatz/bato/internal/chat"
	"github.com/picatz/bato/internal/chat/storage"
	pebbleStorage "github.com/picatz/bato/internal/chat/storage/pebble"
)

// pebbleLogger routes pebble's log output through the command logger.
type pebbleLogger struct {
	logger *slog.Logger
}

func (l pebbleLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "pebble")
}

func (l pebbleLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "pebble")
}

func (l pebbleLogger) Fatalf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "pebble")
	os.Exit(1)
}

func (l pebbleLogger) Eventf(ctx context.Context, format string, args ...any) {}

func (l pebbleLogger) IsTracingEnabled(ctx context.Context) bool {
	return false
}

// openHistory opens the local transcript history. A temporary history lives in
// memory and is gone when the command exits.
func openHistory(temporary bool) (*pebbleStorage.Backend[string, chat.Transcript], error) {
	opts := &pebble.Options{
		LoggerAndTracer: pebbleLogger{logger: log},
	}
	if temporary {
		opts.FS = vfs.NewMem()
	}

	b, err := pebbleStorage.NewBackend(cfg.GetHistoryPath(), opts, &storage.StringKeyCodec[chat.Transcript]{})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat history: %w", err)
	}
	return b, nil
}
