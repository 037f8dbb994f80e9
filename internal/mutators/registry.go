package mutators

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/iudanet/sketchsync/internal/models"
)

// Mutator executes one named mutation with JSON encoded arguments.
type Mutator func(ctx context.Context, tx WriteTx, args json.RawMessage) error

var registry map[string]Mutator

// registry заполняется в init: UpdateFromStore вызывает Execute, который читает registry
func init() {
	registry = map[string]Mutator{
		models.MutatorCreateRecord: func(ctx context.Context, tx WriteTx, args json.RawMessage) error {
			var record models.Record
			if err := decodeArgs(args, &record); err != nil {
				return err
			}
			return CreateRecord(ctx, tx, record)
		},
		models.MutatorDeleteRecord: func(ctx context.Context, tx WriteTx, args json.RawMessage) error {
			var a models.DeleteRecordArgs
			if err := decodeArgs(args, &a); err != nil {
				return err
			}
			return DeleteRecord(ctx, tx, a.ID)
		},
		models.MutatorUpdateRecord: func(ctx context.Context, tx WriteTx, args json.RawMessage) error {
			var a models.UpdateRecordArgs
			if err := decodeArgs(args, &a); err != nil {
				return err
			}
			return UpdateRecord(ctx, tx, a)
		},
		models.MutatorUpdateShape: func(ctx context.Context, tx WriteTx, args json.RawMessage) error {
			var delta models.ShapeDelta
			if err := decodeArgs(args, &delta); err != nil {
				return err
			}
			return UpdateShape(ctx, tx, delta)
		},
		models.MutatorUpdateFromStore: func(ctx context.Context, tx WriteTx, args json.RawMessage) error {
			var changes models.RecordsDiff
			if err := decodeArgs(args, &changes); err != nil {
				return err
			}
			return UpdateFromStore(ctx, tx, changes)
		},
	}
}

// Execute runs the mutator registered under m.Name.
func Execute(ctx context.Context, tx WriteTx, m models.Mutation) error {
	fn, ok := registry[m.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMutator, m.Name)
	}
	return fn(ctx, tx, m.Args)
}

// Names returns the names of all registered mutators.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}
