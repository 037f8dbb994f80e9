package diff

import (
	"fmt"
	"sort"

	"github.com/iudanet/sketchsync/internal/models"
)

// Step is one translated mutation and the record key it targets.
type Step struct {
	Key      string
	Mutation models.Mutation
}

// Translate fans a batch diff out into catalog mutations, ordered added, removed,
// updated. Within a group ids are sorted so the output is deterministic.
// Shape updates become updateShape deltas; everything else is a JSON patch
// applied by updateRecord, which skips records deleted concurrently.
// Updates that change nothing produce no mutation.
func Translate(d models.RecordsDiff) ([]Step, error) {
	out := make([]Step, 0, len(d.Added)+len(d.Removed)+len(d.Updated))

	for _, id := range models.SortedIDs(d.Added) {
		m, err := models.NewMutation(models.MutatorCreateRecord, d.Added[id])
		if err != nil {
			return nil, fmt.Errorf("added %s: %w", id, err)
		}
		out = append(out, Step{Key: id, Mutation: m})
	}

	removed := append([]string(nil), d.Removed...)
	sort.Strings(removed)
	for _, id := range removed {
		m, err := models.NewMutation(models.MutatorDeleteRecord, models.DeleteRecordArgs{ID: id})
		if err != nil {
			return nil, fmt.Errorf("removed %s: %w", id, err)
		}
		out = append(out, Step{Key: id, Mutation: m})
	}

	for _, id := range models.SortedIDs(d.Updated) {
		m, emit, err := Update(d.Updated[id])
		if err != nil {
			return nil, fmt.Errorf("updated %s: %w", id, err)
		}
		if emit {
			out = append(out, Step{Key: id, Mutation: m})
		}
	}

	return out, nil
}

// Update translates a single before/after pair. emit is false for no-op updates.
func Update(u models.RecordUpdate) (m models.Mutation, emit bool, err error) {
	if delta, ok := ShapeDelta(u.Prev, u.Next); ok {
		if delta.IsEmpty() {
			return models.Mutation{}, false, nil
		}
		m, err = models.NewMutation(models.MutatorUpdateShape, delta)
		return m, err == nil, err
	}

	if u.Prev == nil {
		// без прежнего значения патч построить не из чего
		m, err = models.NewMutation(models.MutatorCreateRecord, u.Next)
		return m, err == nil, err
	}
	if u.Prev.Equal(u.Next) {
		return models.Mutation{}, false, nil
	}

	m, err = UpdateRecord(u.Prev, u.Next)
	return m, err == nil, err
}
