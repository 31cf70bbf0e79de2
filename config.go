package rulefilter

import (
	"log/slog"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Config contains configuration for a Filterer.
// The zero value is ready to use.
type Config struct {
	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified and Logger is nil, a text logger writing
	// to stderr is created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, the Logger's own level applies.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// Now is the clock date labels are resolved against.
	// OPTIONAL: Uses time.Now if nil.
	Now func() time.Time

	// ImplicitAnd accepts a sequence of leaves without a leading tag as
	// their conjunction.
	// OPTIONAL: Off by default; such sequences are structural errors.
	ImplicitAnd bool
}

func (c Config) allocator() memory.Allocator {
	if c.Allocator == nil {
		return memory.DefaultAllocator
	}
	return c.Allocator
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *c.LogLevel}))
	}
	return slog.Default()
}

func (c Config) now() func() time.Time {
	if c.Now == nil {
		return time.Now
	}
	return c.Now
}
