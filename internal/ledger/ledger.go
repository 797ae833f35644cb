package ledger

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"dagtemplate/internal/core"
	"dagtemplate/internal/security"
	"dagtemplate/pkg/utils"
)

// Ledger is the append-only registration history of job definitions.
// File format: JSON lines (one JSON entry per line).
type Ledger struct {
	mu      sync.Mutex
	entries []*Entry
	path    string
	now     func() time.Time
	trusted ed25519.PublicKey
}

// Open loads an existing ledger file or creates an empty one.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		entries: make([]*Entry, 0),
		path:    path,
		now:     time.Now,
	}

	// If file missing, create empty file
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		_ = f.Close()
		return l, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode ledger entry %d: %w", len(l.entries), err)
		}
		l.entries = append(l.entries, &e)
	}
	return l, nil
}

// Trust makes Verify reject entries not signed by pub.
func (l *Ledger) Trust(pub ed25519.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trusted = pub
}

// Append signs e and persists it. e.PrevHash must link to the current tail.
func (l *Ledger) Append(e *Entry, keys security.KeyPair) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(e, keys)
}

func (l *Ledger) appendLocked(e *Entry, keys security.KeyPair) error {
	if l.trusted != nil && !keys.Public.Equal(l.trusted) {
		return errors.New("signing key is not the trusted ledger key")
	}
	// recompute so the stored hash always matches the canonical fields
	h, err := e.ComputeHash()
	if err != nil {
		return fmt.Errorf("cannot recompute entry hash: %w", err)
	}
	e.Hash = h

	if len(l.entries) > 0 {
		last := l.entries[len(l.entries)-1]
		if e.PrevHash != last.Hash {
			return fmt.Errorf("prevHash mismatch: expected %s, got %s", last.Hash, e.PrevHash)
		}
	}

	sig, err := keys.Sign([]byte(e.Hash))
	if err != nil {
		return err
	}
	e.Signature = sig
	e.PubKey = keys.PublicHex()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(e); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}

	l.entries = append(l.entries, e)
	return nil
}

// Record appends an entry for job unless its latest entry already describes
// the same serialized document. recorded is false in that case and the
// existing entry is returned.
//
// A job id whose recorded schedule differs from job's schedule is refused with
// core.ErrScheduleChanged.
func (l *Ledger) Record(job *core.Job, format core.Format, doc []byte, keys security.KeyPair) (entry Entry, recorded bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	docHash := utils.HashBytes(doc)
	if prev := l.latestLocked(job.ID()); prev != nil {
		if prev.Schedule != job.Schedule().String() {
			return Entry{}, false, core.ScheduleChanged(job.ID(), prev.Schedule, job.Schedule().String())
		}
		if prev.Version == job.Version() && prev.Format == string(format) && prev.DocHash == docHash {
			return *prev, false, nil
		}
	}

	prevHash := ""
	if len(l.entries) > 0 {
		prevHash = l.entries[len(l.entries)-1].Hash
	}
	e, err := NewEntry(len(l.entries), l.now(), job.ID(), job.Version(), job.Schedule().String(), string(format), docHash, prevHash)
	if err != nil {
		return Entry{}, false, err
	}
	if err := l.appendLocked(e, keys); err != nil {
		return Entry{}, false, err
	}
	return *e, true, nil
}

// Entries returns a copy of every entry in order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	return out
}

// Latest returns the most recent entry for jobID.
func (l *Ledger) Latest(jobID string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e := l.latestLocked(jobID); e != nil {
		return *e, true
	}
	return Entry{}, false
}

func (l *Ledger) latestLocked(jobID string) *Entry {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].JobID == jobID {
			return l.entries[i]
		}
	}
	return nil
}

// NextIndex returns the next entry index
func (l *Ledger) NextIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// LastHash returns the last entry hash (or empty if none)
func (l *Ledger) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].Hash
}
