package jsonfile

import (
	"crypto/sha256"
	"sync"
)

// WriteLog remembers the last payload a DocumentStore wrote, so a Watcher
// sharing it can tell the server's own saves from outside edits. A nil
// WriteLog records nothing.
type WriteLog struct {
	mu   sync.Mutex
	last [sha256.Size]byte
	set  bool
}

// NewWriteLog creates an empty log
func NewWriteLog() *WriteLog {
	return &WriteLog{}
}

func (l *WriteLog) record(data []byte) {
	if l == nil {
		return
	}
	sum := sha256.Sum256(data)
	l.mu.Lock()
	l.last, l.set = sum, true
	l.mu.Unlock()
}

// wrote reports whether data is exactly what was last saved
func (l *WriteLog) wrote(data []byte) bool {
	if l == nil {
		return false
	}
	sum := sha256.Sum256(data)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set && l.last == sum
}
