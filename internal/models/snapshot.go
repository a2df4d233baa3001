package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Snapshot is the full registry state: every category mapped to its teams
// in insertion order.
type Snapshot map[Category][]Team

// NewSnapshot returns an empty snapshot with one entry per category.
func NewSnapshot() Snapshot {
	s := make(Snapshot, len(Categories))
	for _, c := range Categories {
		s[c] = []Team{}
	}
	return s
}

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for c, teams := range s {
		out[c] = slices.Clone(teams)
		if out[c] == nil {
			out[c] = []Team{}
		}
	}
	return out
}

// Normalize adds missing categories and defaults empty round statuses.
func (s Snapshot) Normalize() {
	for _, c := range Categories {
		if s[c] == nil {
			s[c] = []Team{}
		}
		for i := range s[c] {
			s[c][i].ApplyStatusDefaults()
		}
	}
}

// Validate checks the snapshot invariants: only known categories, positive
// REF_NO unique within each category, and valid round statuses.
func (s Snapshot) Validate() error {
	for c, teams := range s {
		if !slices.Contains(Categories, c) {
			return fmt.Errorf("unknown category %q", c)
		}
		seen := make(map[int]bool, len(teams))
		for _, t := range teams {
			if t.RefNo <= 0 {
				return fmt.Errorf("category %s: invalid %s %d", c, ColRefNo, t.RefNo)
			}
			if seen[t.RefNo] {
				return fmt.Errorf("category %s: duplicate %s %d", c, ColRefNo, t.RefNo)
			}
			seen[t.RefNo] = true
			if field, bad := t.InvalidStatus(); bad {
				return fmt.Errorf("category %s %s %d: invalid %s %q", c, ColRefNo, t.RefNo, field, t.Value(field))
			}
		}
	}
	return nil
}

// MarshalJSON writes categories in declared order rather than map order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(c))
		if err != nil {
			return nil, err
		}
		teams := s[c]
		if teams == nil {
			teams = []Team{}
		}
		val, err := json.Marshal(teams)
		if err != nil {
			return nil, fmt.Errorf("encoding category %s: %w", c, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[Category][]Team
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = make(map[Category][]Team)
	}
	snap := Snapshot(raw)
	snap.Normalize()
	if err := snap.Validate(); err != nil {
		return err
	}
	*s = snap
	return nil
}
