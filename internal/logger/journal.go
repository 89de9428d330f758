// internal/logger/journal.go
package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Journal appends CSV records to a file, flushing periodically.
type Journal struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	logger   *zap.Logger
	filePath string

	written uint64
	flushes uint64
}

// NewJournal opens filePath for appending and writes header when the file is empty.
func NewJournal(filePath string, header []string, flushInterval time.Duration, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	j := &Journal{
		writer:   csv.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger,
		filePath: filePath,
	}
	if stat.Size() == 0 && len(header) > 0 {
		if err := j.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		j.writer.Flush()
	}

	go j.periodicFlush()
	return j, nil
}

func (j *Journal) Write(record []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	j.written++
	return nil
}

func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *Journal) flushLocked() error {
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	j.flushes++
	return nil
}

func (j *Journal) periodicFlush() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.Flush(); err != nil {
				j.logger.Error("Periodic journal flush failed",
					zap.String("file", j.filePath),
					zap.Error(err))
			}
		case <-j.done:
			return
		}
	}
}

// Close flushes and closes the file.
func (j *Journal) Close() error {
	close(j.done)
	j.ticker.Stop()

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.flushLocked(); err != nil {
		return err
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	j.logger.Debug("Journal closed",
		zap.String("file", j.filePath),
		zap.Uint64("records", j.written))
	return nil
}

// Stats returns the number of records written and flushes performed.
func (j *Journal) Stats() (records, flushes uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written, j.flushes
}
