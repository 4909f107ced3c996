// Package seatref normalizes seat identifiers arriving from different call
// paths. Clients, gateway redirects and persisted snapshots hand us IDs with
// inconsistent casing, whitespace and wrapping; everything is reduced to the
// canonical lowercase UUID form before it touches the database.
package seatref

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Normalize reduces a single seat identifier to canonical form. It accepts
// plain UUIDs, braced UUIDs and urn:uuid: prefixed forms in any case.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty seat identifier")
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid seat identifier %q: %w", raw, err)
	}

	return id.String(), nil
}

// NormalizeAll normalizes a batch, dropping values that do not parse and
// collapsing duplicates while preserving first-seen order. Returns the clean
// IDs and the count of dropped values.
func NormalizeAll(raw []string) ([]string, int) {
	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))
	dropped := 0

	for _, v := range raw {
		id, err := Normalize(v)
		if err != nil {
			dropped++
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}

	return result, dropped
}
