package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is a tamper-evident record of one job definition being registered.
type Entry struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"`
	JobID     string `json:"jobId"`
	Version   string `json:"version"`
	Schedule  string `json:"schedule"`
	Format    string `json:"format"`
	DocHash   string `json:"docHash"`
	PrevHash  string `json:"prevHash"`
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	PubKey    string `json:"pubKey"`
}

// canonicalData returns the JSON bytes used to compute the entry hash.
// It intentionally excludes Hash, Signature and PubKey.
func (e *Entry) canonicalData() ([]byte, error) {
	view := struct {
		Index     int    `json:"index"`
		Timestamp string `json:"timestamp"`
		JobID     string `json:"jobId"`
		Version   string `json:"version"`
		Schedule  string `json:"schedule"`
		Format    string `json:"format"`
		DocHash   string `json:"docHash"`
		PrevHash  string `json:"prevHash"`
	}{
		Index:     e.Index,
		Timestamp: e.Timestamp,
		JobID:     e.JobID,
		Version:   e.Version,
		Schedule:  e.Schedule,
		Format:    e.Format,
		DocHash:   e.DocHash,
		PrevHash:  e.PrevHash,
	}
	return json.Marshal(view)
}

// ComputeHash calculates SHA256 over canonicalData
func (e *Entry) ComputeHash() (string, error) {
	data, err := e.canonicalData()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewEntry constructs an entry and computes its hash (no signature yet)
func NewEntry(index int, at time.Time, jobID, version, schedule, format, docHash, prevHash string) (*Entry, error) {
	e := &Entry{
		Index:     index,
		Timestamp: at.UTC().Format(time.RFC3339),
		JobID:     jobID,
		Version:   version,
		Schedule:  schedule,
		Format:    format,
		DocHash:   docHash,
		PrevHash:  prevHash,
	}

	h, err := e.ComputeHash()
	if err != nil {
		return nil, fmt.Errorf("compute entry hash: %w", err)
	}
	e.Hash = h
	return e, nil
}
