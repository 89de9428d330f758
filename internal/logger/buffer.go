// internal/logger/buffer.go
package logger

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// Entry is one captured log line.
type Entry struct {
	Time    time.Time
	Level   zapcore.Level
	Logger  string
	Message string
	Fields  map[string]interface{}
}

// RingBuffer keeps the most recent log entries in memory for display.
type RingBuffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	wrapped bool
	total   uint64
}

func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{entries: make([]Entry, size)}
}

func (b *RingBuffer) add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.wrapped = true
	}
	b.total++
}

// Recent returns up to limit of the newest entries, oldest first. A
// non-positive limit returns everything held.
func (b *RingBuffer) Recent(limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := b.next
	start := 0
	if b.wrapped {
		count = len(b.entries)
		start = b.next
	}
	skip := 0
	if limit > 0 && limit < count {
		skip = count - limit
	}
	out := make([]Entry, 0, count-skip)
	for i := skip; i < count; i++ {
		out = append(out, b.entries[(start+i)%len(b.entries)])
	}
	return out
}

// Total returns how many entries were ever written.
func (b *RingBuffer) Total() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Core returns a zap core that writes into the buffer.
func (b *RingBuffer) Core(level zapcore.LevelEnabler) zapcore.Core {
	return &ringCore{LevelEnabler: level, buf: b}
}

type ringCore struct {
	zapcore.LevelEnabler
	buf    *RingBuffer
	fields []zapcore.Field
}

func (c *ringCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &ringCore{LevelEnabler: c.LevelEnabler, buf: c.buf, fields: merged}
}

func (c *ringCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ringCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	c.buf.add(Entry{
		Time:    ent.Time,
		Level:   ent.Level,
		Logger:  ent.LoggerName,
		Message: ent.Message,
		Fields:  enc.Fields,
	})
	return nil
}

func (c *ringCore) Sync() error {
	return nil
}
