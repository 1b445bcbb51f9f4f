package models

import (
	"sort"
	"strings"
	"time"
)

// NormalizeName is the lookup normalization for team and referee names:
// lowercase, trimmed, internal whitespace collapsed to single spaces.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

// NameMapper resolves vendor aliases to canonical team names. Keys and values are normalized.
type NameMapper map[string]string

// NewNameMapper builds a mapper from raw alias -> canonical pairs.
func NewNameMapper(raw map[string]string) NameMapper {
	m := make(NameMapper, len(raw))
	for alias, canonical := range raw {
		a := NormalizeName(alias)
		c := NormalizeName(canonical)
		if a == "" || c == "" {
			continue
		}
		m[a] = c
	}
	return m
}

// Resolve consults the mapping table first, then falls back to plain normalization.
func (m NameMapper) Resolve(name string) string {
	n := NormalizeName(name)
	if c, ok := m[n]; ok {
		return c
	}
	return n
}

// FrictionKey returns the canonical unordered key for a team pair.
func FrictionKey(a, b string) string {
	pair := []string{NormalizeName(a), NormalizeName(b)}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1]
}

// CanonicalMatchID builds a stable match identifier.
// Format: home|away|date (UTC calendar day of kick-off).
func CanonicalMatchID(homeTeam, awayTeam string, startTime time.Time) string {
	home := normalizeKeyPart(homeTeam)
	away := normalizeKeyPart(awayTeam)

	ts := "unknown-date"
	if !startTime.IsZero() {
		ts = startTime.UTC().Format(time.DateOnly)
	}

	return home + "|" + away + "|" + ts
}

func normalizeKeyPart(s string) string {
	s = NormalizeName(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "|", " ")
	return strings.Join(strings.Fields(s), " ")
}
