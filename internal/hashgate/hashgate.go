// Package hashgate decides whether a payload needs processing by comparing the
// SHA-256 of its content with the digest stored after the last successful run.
package hashgate

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/temirov/llm-prompter/internal/fsops"
)

const hashFileExtension = ".hash"

// Decision is the outcome of Check.
type Decision struct {
	Process     bool
	CurrentHash string
}

// Gate stores one hash file per payload under Dir. An empty Dir disables it.
type Gate struct {
	Store fsops.Store
	Dir   string
	// Force processes every payload regardless of stored hashes.
	Force bool
}

func (g Gate) Enabled() bool { return strings.TrimSpace(g.Dir) != "" }

// Hash returns the lowercase hex SHA-256 digest of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Path returns the hash file of payloadName.
func (g Gate) Path(payloadName string) string {
	return filepath.Join(g.Dir, filepath.FromSlash(payloadName)+hashFileExtension)
}

// Check skips a payload whose stored hash equals the current one. Otherwise a
// stale stored hash is deleted before processing begins.
func (g Gate) Check(payloadName string, payloadText string) (Decision, error) {
	decision := Decision{Process: true, CurrentHash: Hash(payloadText)}
	if !g.Enabled() {
		return decision, nil
	}
	storedHash, exists, err := g.Store.ReadTextIfExists(g.Path(payloadName))
	if err != nil {
		return Decision{}, err
	}
	if !exists {
		return decision, nil
	}
	if !g.Force && strings.TrimSpace(storedHash) == decision.CurrentHash {
		decision.Process = false
		return decision, nil
	}
	if err := g.Store.Delete(g.Path(payloadName)); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// Commit records currentHash for payloadName. Call it only after every
// artifact of the payload was written without error.
func (g Gate) Commit(payloadName string, currentHash string) error {
	if !g.Enabled() {
		return nil
	}
	return g.Store.WriteText(g.Path(payloadName), currentHash)
}
