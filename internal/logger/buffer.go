// internal/logger/buffer.go
package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer is a thread-safe ring of recent log entries. Entries evicted
// from the ring are appended to an optional spill file. It implements
// io.Writer for JSON-encoded zap output so it can back a zapcore.Core.
type LogBuffer struct {
	mu          sync.Mutex
	ring        []LogEntry
	maxSize     int
	next        int
	full        bool
	spillFile   *os.File
	spillWriter *bufio.Writer

	totalEntries   uint64
	spilledEntries uint64
	spillErrors    uint64
}

// NewLogBuffer creates a buffer holding maxSize entries. An empty
// spillFilePath disables spilling.
func NewLogBuffer(maxSize int, spillFilePath string) (*LogBuffer, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid log buffer size %d", maxSize)
	}
	lb := &LogBuffer{
		ring:    make([]LogEntry, maxSize),
		maxSize: maxSize,
	}
	if spillFilePath == "" {
		return lb, nil
	}

	if err := os.MkdirAll(filepath.Dir(spillFilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	spillFile, err := os.OpenFile(spillFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open spill file: %w", err)
	}
	lb.spillFile = spillFile
	lb.spillWriter = bufio.NewWriter(spillFile)
	return lb, nil
}

// Add appends an entry, evicting the oldest one when the ring is full.
func (lb *LogBuffer) Add(entry LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if lb.full {
		lb.spill(lb.ring[lb.next])
	}
	lb.ring[lb.next] = entry
	lb.next = (lb.next + 1) % lb.maxSize
	if lb.next == 0 {
		lb.full = true
	}
	lb.totalEntries++
}

// Write decodes one or more JSON log lines produced by a zap JSON encoder.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lb.Add(decodeEntry(line))
	}
	return len(p), nil
}

// Sync flushes the spill file; it lets LogBuffer serve as a zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error {
	return lb.Flush()
}

func decodeEntry(line []byte) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEntry{Timestamp: time.Now(), Level: "info", Message: string(line)}
	}
	entry := LogEntry{Fields: map[string]interface{}{}}
	for k, v := range raw {
		switch k {
		case "msg":
			entry.Message, _ = v.(string)
		case "level":
			entry.Level, _ = v.(string)
		case "logger":
			entry.Logger, _ = v.(string)
		case "time":
			if s, ok := v.(string); ok {
				entry.Timestamp, _ = time.Parse(time.RFC3339Nano, s)
			}
		default:
			entry.Fields[k] = v
		}
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}
	return entry
}

func (lb *LogBuffer) spill(entry LogEntry) {
	if lb.spillWriter == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err == nil {
		_, err = lb.spillWriter.Write(append(data, '\n'))
	}
	if err != nil {
		lb.spillErrors++
		return
	}
	lb.spilledEntries++
}

// GetRecentLogs returns up to limit of the newest entries, oldest first.
// A non-positive limit returns everything buffered.
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.next
	start := 0
	if lb.full {
		count = lb.maxSize
		start = lb.next
	}
	skip := 0
	if limit > 0 && limit < count {
		skip = count - limit
	}

	logs := make([]LogEntry, 0, count-skip)
	for i := skip; i < count; i++ {
		logs = append(logs, lb.ring[(start+i)%lb.maxSize])
	}
	return logs
}

// Flush forces a write of any buffered data to the spill file
func (lb *LogBuffer) Flush() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.flushLocked()
}

func (lb *LogBuffer) flushLocked() error {
	if lb.spillWriter == nil {
		return nil
	}
	if err := lb.spillWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush spill writer: %w", err)
	}
	return nil
}

// Close spills everything still in the ring and closes the spill file.
func (lb *LogBuffer) Close() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.spillFile == nil {
		return nil
	}

	count, start := lb.next, 0
	if lb.full {
		count, start = lb.maxSize, lb.next
	}
	for i := 0; i < count; i++ {
		lb.spill(lb.ring[(start+i)%lb.maxSize])
	}

	if err := lb.flushLocked(); err != nil {
		return err
	}
	if err := lb.spillFile.Close(); err != nil {
		return fmt.Errorf("failed to close spill file: %w", err)
	}
	lb.spillFile = nil
	lb.spillWriter = nil
	return nil
}

// BufferStats is a snapshot of LogBuffer counters.
type BufferStats struct {
	Total       uint64
	Spilled     uint64
	SpillErrors uint64
}

// GetStats returns buffer statistics
func (lb *LogBuffer) GetStats() BufferStats {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return BufferStats{Total: lb.totalEntries, Spilled: lb.spilledEntries, SpillErrors: lb.spillErrors}
}

// StartPeriodicFlush flushes the spill file every interval until the
// returned channel is closed.
func (lb *LogBuffer) StartPeriodicFlush(interval time.Duration) chan struct{} {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = lb.Flush()
			case <-done:
				return
			}
		}
	}()

	return done
}
