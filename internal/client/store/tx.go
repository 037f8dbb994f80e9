package store

import (
	"github.com/iudanet/sketchsync/internal/models"
)

type touched struct {
	prev    models.Record
	existed bool
}

// Tx is the write handle of a store transaction. It is valid only inside the
// function passed to Transact.
type Tx struct {
	s       *Store
	touched map[string]touched
	order   []string
	done    bool
}

// Get returns a copy of a record as seen by the transaction.
func (tx *Tx) Get(id string) (models.Record, bool) {
	r, ok := tx.s.records[id]
	return r.Clone(), ok
}

// Put stores a copy of the record under its id.
func (tx *Tx) Put(r models.Record) error {
	if tx.done {
		return errTxDone
	}
	if err := r.Validate(); err != nil {
		return err
	}
	id := r.ID()
	tx.touch(id)
	tx.s.records[id] = r.Clone()
	return nil
}

// Remove deletes a record. Removing an absent id does nothing.
func (tx *Tx) Remove(id string) {
	if tx.done {
		return
	}
	if _, ok := tx.s.records[id]; !ok {
		return
	}
	tx.touch(id)
	delete(tx.s.records, id)
}

func (tx *Tx) touch(id string) {
	if _, ok := tx.touched[id]; ok {
		return
	}
	prev, existed := tx.s.records[id]
	tx.touched[id] = touched{prev: prev, existed: existed}
	tx.order = append(tx.order, id)
}

// rollback восстанавливает значения, измененные транзакцией
func (tx *Tx) rollback() {
	for id, t := range tx.touched {
		if t.existed {
			tx.s.records[id] = t.prev
		} else {
			delete(tx.s.records, id)
		}
	}
}

// change computes the net effect of the transaction.
func (tx *Tx) change(origin Origin) Change {
	c := Change{
		Origin:   origin,
		Diff:     models.NewRecordsDiff(),
		Previous: make(map[string]models.Record),
	}

	for _, id := range tx.order {
		before := tx.touched[id]
		next, exists := tx.s.records[id]

		switch {
		case before.existed && !exists:
			c.Diff.Removed = append(c.Diff.Removed, id)
			c.Previous[id] = before.prev.Clone()
		case !before.existed && exists:
			c.Diff.Added[id] = next.Clone()
		case exists && !before.prev.Equal(next):
			c.Diff.Updated[id] = models.RecordUpdate{Prev: before.prev.Clone(), Next: next.Clone()}
		}
	}
	return c
}
