package models

import "sort"

// RecordUpdate is the before/after pair of one updated record.
type RecordUpdate struct {
	Prev Record `json:"prev"`
	Next Record `json:"next"`
}

// RecordsDiff - пакет изменений одной локальной транзакции хранилища.
// Порядок обработки внутри пакета: added, затем removed, затем updated.
type RecordsDiff struct {
	Added   map[string]Record       `json:"added"`
	Updated map[string]RecordUpdate `json:"updated"`
	Removed []string                `json:"removed"`
}

// NewRecordsDiff creates an empty diff with allocated maps.
func NewRecordsDiff() RecordsDiff {
	return RecordsDiff{
		Added:   make(map[string]Record),
		Updated: make(map[string]RecordUpdate),
		Removed: []string{},
	}
}

// IsEmpty reports whether the diff carries no changes.
func (d RecordsDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Clone создает глубокую копию пакета изменений
func (d RecordsDiff) Clone() RecordsDiff {
	out := NewRecordsDiff()
	for id, r := range d.Added {
		out.Added[id] = r.Clone()
	}
	for id, u := range d.Updated {
		out.Updated[id] = RecordUpdate{Prev: u.Prev.Clone(), Next: u.Next.Clone()}
	}
	out.Removed = append(out.Removed, d.Removed...)
	return out
}

// Filter returns the part of the diff whose records satisfy keep.
// Removed ids are checked against the record they had before removal.
func (d RecordsDiff) Filter(keep func(id string, r Record) bool, removedRecords map[string]Record) RecordsDiff {
	out := NewRecordsDiff()
	for id, r := range d.Added {
		if keep(id, r) {
			out.Added[id] = r
		}
	}
	for id, u := range d.Updated {
		if keep(id, u.Next) {
			out.Updated[id] = u
		}
	}
	for _, id := range d.Removed {
		if keep(id, removedRecords[id]) {
			out.Removed = append(out.Removed, id)
		}
	}
	return out
}

// SortedIDs returns map keys in lexical order so fan-out is deterministic.
func SortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
