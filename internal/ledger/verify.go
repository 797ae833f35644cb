package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"dagtemplate/internal/core"
	"dagtemplate/internal/security"
	"dagtemplate/pkg/utils"
)

// Verify checks the chain against the key set with Trust. Without a trusted
// key it only checks that the chain is self-consistent.
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verifyLocked(l.trusted)
}

// VerifyWith re-computes each entry hash, link and signature and requires
// every entry to be signed by trusted.
func (l *Ledger) VerifyWith(trusted ed25519.PublicKey) error {
	if len(trusted) != ed25519.PublicKeySize {
		return errors.New("trusted public key is missing or malformed")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verifyLocked(trusted)
}

func (l *Ledger) verifyLocked(trusted ed25519.PublicKey) error {
	trustedHex := ""
	if trusted != nil {
		trustedHex = hex.EncodeToString(trusted)
	}

	for i, e := range l.entries {
		h, err := e.ComputeHash()
		if err != nil {
			return fmt.Errorf("compute hash for index %d: %w", e.Index, err)
		}
		if h != e.Hash {
			return fmt.Errorf("hash mismatch at index %d", e.Index)
		}

		if i == 0 && e.PrevHash != "" {
			return fmt.Errorf("first entry links to %s", e.PrevHash)
		}
		if i > 0 && e.PrevHash != l.entries[i-1].Hash {
			return fmt.Errorf("prev hash mismatch at index %d", e.Index)
		}
		if e.Index != i {
			return fmt.Errorf("index mismatch: expected %d got %d", i, e.Index)
		}

		if trustedHex != "" && e.PubKey != trustedHex {
			return fmt.Errorf("untrusted signing key at index %d", e.Index)
		}
		ok, err := security.VerifyHex(e.PubKey, []byte(e.Hash), e.Signature)
		if err != nil {
			return fmt.Errorf("signature at index %d: %w", e.Index, err)
		}
		if !ok {
			return fmt.Errorf("bad signature at index %d", e.Index)
		}
	}
	return nil
}

// PathResolver maps a job id and format to the file holding its definition.
type PathResolver interface {
	Path(jobID string, format core.Format) string
}

// VerifyFiles checks that the latest recorded document of every job still
// matches the file on disk.
func (l *Ledger) VerifyFiles(store PathResolver) error {
	latest := make(map[string]Entry)
	var order []string
	for _, e := range l.Entries() {
		if _, seen := latest[e.JobID]; !seen {
			order = append(order, e.JobID)
		}
		latest[e.JobID] = e
	}

	var problems []string
	for _, id := range order {
		e := latest[id]
		path := store.Path(id, core.Format(e.Format))
		sum, err := utils.HashFile(path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if sum != e.DocHash {
			problems = append(problems, fmt.Sprintf("%s: %s changed since entry %d", id, path, e.Index))
		}
	}
	if len(problems) > 0 {
		return errors.New("definition files do not match ledger: " + strings.Join(problems, "; "))
	}
	return nil
}
