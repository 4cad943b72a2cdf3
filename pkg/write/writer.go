package write

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/gateway"
	"github.com/workbook-tools/collection-migrator/pkg/util"
)

// ObjectWriter stores a migrated card or dashboard
type ObjectWriter interface {
	Write(ctx context.Context, kind catalog.Kind, id int64, obj map[string]interface{}) error
}

// NewObjectWriter returns an object writer based on the current config. It
// will configure trace logging if the current log level is trace, and will
// dry-run if no client is passed.
func NewObjectWriter(client gateway.Client) ObjectWriter {
	if client == nil {
		return NewDryRunObjectWriter()
	}
	w := StdObjectWriter{client: client}
	if zerolog.GlobalLevel() == zerolog.TraceLevel {
		return LoggingObjectWriter{writer: w, level: zerolog.TraceLevel}
	}
	return w
}

// StdObjectWriter PUTs objects through the gateway, no-frills.
type StdObjectWriter struct {
	client gateway.Client
}

func (w StdObjectWriter) Write(ctx context.Context, kind catalog.Kind, id int64, obj map[string]interface{}) error {
	return w.client.Put(ctx, catalog.ItemPath(kind, id), obj, nil)
}

// CountingObjectWriter counts the writes per kind before delegating to an
// underlying ObjectWriter
type CountingObjectWriter struct {
	writer ObjectWriter

	mu     sync.Mutex
	counts map[catalog.Kind]int
}

// NewCountingObjectWriter wraps writer.
func NewCountingObjectWriter(writer ObjectWriter) *CountingObjectWriter {
	return &CountingObjectWriter{writer: writer, counts: make(map[catalog.Kind]int)}
}

func (w *CountingObjectWriter) Write(ctx context.Context, kind catalog.Kind, id int64, obj map[string]interface{}) error {
	if err := w.writer.Write(ctx, kind, id, obj); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.counts[kind]++
	return nil
}

// Count returns the number of successful writes of a kind.
func (w *CountingObjectWriter) Count(kind catalog.Kind) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counts[kind]
}

// LoggingObjectWriter will log each write before delegating to an
// underlying ObjectWriter
type LoggingObjectWriter struct {
	writer ObjectWriter
	level  zerolog.Level
}

func (w LoggingObjectWriter) Write(ctx context.Context, kind catalog.Kind, id int64, obj map[string]interface{}) error {
	err := w.writer.Write(ctx, kind, id, obj)
	log.WithLevel(w.level).Str("object", util.ItemString(string(kind), id, obj)).Err(err).Msg("write")
	return err
}

// NewDryRunObjectWriter constructs a new object writer that logs but
// doesn't write.
func NewDryRunObjectWriter() ObjectWriter {
	return LoggingObjectWriter{
		writer: DiscardingObjectWriter{},
		level:  zerolog.InfoLevel,
	}
}

// DiscardingObjectWriter does nothing but satisfy ObjectWriter
type DiscardingObjectWriter struct{}

func (w DiscardingObjectWriter) Write(ctx context.Context, kind catalog.Kind, id int64, obj map[string]interface{}) error {
	return nil
}
