package selection

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"NomadScanner/internal/domain"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// StablePick chooses one candidate by hashing "{seed}:{entry_id}" with SHA-256
// and keeping the lexicographically smallest hex digest. The result does not
// depend on candidate order; equal digests keep the first-encountered
// candidate. Candidates without an entry ID are never selected.
func StablePick(candidates []domain.PickedEntry, seed int) (domain.PickedEntry, bool) {
	var (
		best     domain.PickedEntry
		bestHash string
		found    bool
	)

	for _, candidate := range candidates {
		if candidate.EntryID == "" {
			continue
		}

		digest := sha256.Sum256(fmt.Appendf(nil, "%d:%s", seed, candidate.EntryID))
		hash := hex.EncodeToString(digest[:])
		if !found || hash < bestHash {
			best = candidate
			bestHash = hash
			found = true
		}
	}

	return best, found
}

// Deduplicate drops every entry after the first with a given ID, preserving
// the order of first occurrences. Entries without an ID are dropped.
func Deduplicate(entries []domain.PickedEntry) []domain.PickedEntry {
	seen := make(map[string]struct{}, len(entries))
	unique := make([]domain.PickedEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.EntryID == "" {
			continue
		}
		if _, ok := seen[entry.EntryID]; ok {
			continue
		}
		seen[entry.EntryID] = struct{}{}
		unique = append(unique, entry)
	}

	return unique
}

// NormalizeCodeName produces a filesystem-safe fragment for a code name.
func NormalizeCodeName(code string) string {
	if code == "" {
		return "unknown"
	}

	cleaned := unsafeChars.ReplaceAllString(strings.TrimSpace(code), "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}
