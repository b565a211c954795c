package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SequenceKey identifies an independent numbering sequence
type SequenceKey struct {
	Prefix    string
	ScopeCode string
	Year      int
}

// NewSequenceKey builds the key for a category and scope; an empty scope is national
func NewSequenceKey(category ActionCategory, scopeCode string, year int) SequenceKey {
	if scopeCode == "" {
		scopeCode = NationalScope
	}
	return SequenceKey{Prefix: category.Prefix(), ScopeCode: strings.ToUpper(scopeCode), Year: year}
}

// Base returns the number without its sequence part, e.g. "GEN-NAT-2026-"
func (k SequenceKey) Base() string {
	return fmt.Sprintf("%s-%s-%d-", k.Prefix, k.ScopeCode, k.Year)
}

// Format renders the full number for seq
func (k SequenceKey) Format(seq int) string {
	return fmt.Sprintf("%s%04d", k.Base(), seq)
}

// ParseSequence extracts the sequence part of number if it belongs to key
func (k SequenceKey) ParseSequence(number string) (int, bool) {
	base := k.Base()
	if !strings.HasPrefix(number, base) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, base))
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// NextSequence returns max(existing)+1, or 1 when no existing number belongs to key
func (k SequenceKey) NextSequence(existing []string) int {
	max := 0
	for _, n := range existing {
		if seq, ok := k.ParseSequence(n); ok && seq > max {
			max = seq
		}
	}
	return max + 1
}
