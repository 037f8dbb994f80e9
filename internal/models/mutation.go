package models

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Имена мутаций каталога
const (
	MutatorCreateRecord    = "createRecord"
	MutatorDeleteRecord    = "deleteRecord"
	MutatorUpdateRecord    = "updateRecord"
	MutatorUpdateShape     = "updateShape"
	MutatorUpdateFromStore = "updateFromStore"
)

// Mutation is one named invocation submitted to the transactional log.
// ID is a ULID; the log applies a mutation at most once per client.
type Mutation struct {
	Args json.RawMessage `json:"args"`
	ID   string          `json:"id"`
	Name string          `json:"name"`
}

// NewMutation marshals args and assigns a fresh monotonic id.
// Marshalling also detaches the mutation from the caller's values.
func NewMutation(name string, args any) (Mutation, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return Mutation{}, fmt.Errorf("failed to marshal %s args: %w", name, err)
	}
	return Mutation{
		ID:   ulid.Make().String(),
		Name: name,
		Args: data,
	}, nil
}

// DeleteRecordArgs аргументы deleteRecord
type DeleteRecordArgs struct {
	ID string `json:"id"`
}

// UpdateRecordArgs аргументы updateRecord: RFC 6902 JSON Patch для записи
type UpdateRecordArgs struct {
	Patch json.RawMessage `json:"patch"`
	ID    string          `json:"id"`
}

// DiffOp is the kind of a confirmed key-level change.
type DiffOp string

// Операции подтвержденных изменений
const (
	DiffAdd    DiffOp = "add"
	DiffChange DiffOp = "change"
	DiffDel    DiffOp = "del"
)

// Diff is one confirmed key-level change broadcast by the log.
type Diff struct {
	NewValue Record `json:"newValue,omitempty"`
	Op       DiffOp `json:"op"`
	Key      string `json:"key"`
}

// Poke carries the diffs of one committed mutation in log order.
type Poke struct {
	Diffs   []Diff `json:"diffs"`
	Version int64  `json:"version"`
}
