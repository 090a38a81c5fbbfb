package eventlog

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one journal line.
type Record struct {
	ID      string `json:"id"`
	TS      string `json:"ts"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Log is an append-only JSONL journal of notable service events: installs,
// OAuth outcomes, report failures. Appending never fails the caller, a
// broken journal only costs observability.
type Log struct {
	path  string
	mutex sync.Mutex
}

// New creates a journal at path. The parent directory is created on first
// append.
func New(path string) *Log {
	return &Log{path: path}
}

// Append writes one record. Errors are logged and swallowed.
func (l *Log) Append(event string, payload any) {
	record := Record{
		ID:      uuid.NewString(),
		TS:      time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z",
		Event:   event,
		Payload: payload,
	}

	data, err := json.Marshal(record)
	if err != nil {
		log.Printf("[EVENTS]: Warning, could not encode %s record: %v", event, err)
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		log.Printf("[EVENTS]: Warning, could not create data dir: %v", err)
		return
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[EVENTS]: Warning, could not open journal: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("[EVENTS]: Warning, could not append to journal: %v", err)
	}
}

// Tail returns the last n journal lines, oldest first. A missing or
// unreadable journal comes back empty.
func (l *Log) Tail(n int) []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return []string{}
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	out := make([]string, 0, n)
	start := max(len(lines)-n, 0)
	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
