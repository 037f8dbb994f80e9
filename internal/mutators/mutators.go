package mutators

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/iudanet/sketchsync/internal/diff"
	"github.com/iudanet/sketchsync/internal/models"
)

// CreateRecord stores a copy of record under its id, replacing any previous value.
func CreateRecord(ctx context.Context, tx WriteTx, record models.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	// Копия: вызывающий код может продолжать изменять свой экземпляр
	return tx.Set(ctx, record.ID(), record.Clone())
}

// DeleteRecord removes a record. Deleting an absent record is not an error.
func DeleteRecord(ctx context.Context, tx WriteTx, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", models.ErrInvalidRecord)
	}
	return tx.Del(ctx, id)
}

// UpdateRecord applies an RFC 6902 patch to a record.
// A missing record means it was deleted concurrently, the update is dropped.
func UpdateRecord(ctx context.Context, tx WriteTx, args models.UpdateRecordArgs) error {
	prev, ok, err := tx.Get(ctx, args.ID)
	if err != nil {
		return fmt.Errorf("failed to get record %s: %w", args.ID, err)
	}
	if !ok {
		return nil
	}

	patch, err := jsonpatch.DecodePatch(args.Patch)
	if err != nil {
		return fmt.Errorf("%w: patch for %s: %v", ErrInvalidArgs, args.ID, err)
	}

	doc, err := json.Marshal(prev)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", args.ID, err)
	}

	patched, err := patch.Apply(doc)
	if err != nil {
		return fmt.Errorf("failed to apply patch to %s: %w", args.ID, err)
	}

	next, err := models.DecodeRecord(patched)
	if err != nil {
		return err
	}
	if next.ID() != args.ID {
		return fmt.Errorf("%w: patch changes id of %s", models.ErrInvalidRecord, args.ID)
	}

	return tx.Set(ctx, args.ID, next)
}

// UpdateShape applies a geometry delta to a shape.
// A missing shape means it was deleted concurrently, the delta is dropped.
func UpdateShape(ctx context.Context, tx WriteTx, delta models.ShapeDelta) error {
	if err := delta.Validate(); err != nil {
		return err
	}

	prev, ok, err := tx.Get(ctx, delta.ID)
	if err != nil {
		return fmt.Errorf("failed to get shape %s: %w", delta.ID, err)
	}
	if !ok {
		return nil
	}

	next, err := models.ApplyDelta(prev, delta)
	if err != nil {
		return err
	}

	return tx.Set(ctx, delta.ID, next)
}

// UpdateFromStore applies the batch diff of one local store transaction.
// Sub-mutations run added, removed, updated; a failing one does not stop the
// others, failures are returned together as *BatchError.
func UpdateFromStore(ctx context.Context, tx WriteTx, changes models.RecordsDiff) error {
	steps, err := diff.Translate(changes)
	if err != nil {
		return fmt.Errorf("failed to translate batch: %w", err)
	}

	batchErr := &BatchError{}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := Execute(ctx, tx, step.Mutation); err != nil {
			batchErr.Failures = append(batchErr.Failures, Failure{
				Mutation: step.Mutation.Name,
				Key:      step.Key,
				Err:      err,
			})
			continue
		}
		batchErr.Applied++
	}

	if len(batchErr.Failures) > 0 {
		return batchErr
	}
	return nil
}
