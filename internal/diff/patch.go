package diff

import (
	"encoding/json"
	"fmt"

	"github.com/snorwin/jsonpatch"

	"github.com/iudanet/sketchsync/internal/models"
)

// Patch builds an RFC 6902 JSON Patch that turns prev into next.
// The result is the argument format of the updateRecord mutation.
func Patch(prev, next models.Record) (json.RawMessage, error) {
	list, err := jsonpatch.CreateJSONPatch(map[string]any(next), map[string]any(prev))
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON patch: %w", err)
	}
	if list.Empty() {
		return json.RawMessage("[]"), nil
	}
	return json.RawMessage(list.Raw()), nil
}

// UpdateRecord builds an updateRecord mutation for the change from prev to next.
func UpdateRecord(prev, next models.Record) (models.Mutation, error) {
	patch, err := Patch(prev, next)
	if err != nil {
		return models.Mutation{}, err
	}
	return models.NewMutation(models.MutatorUpdateRecord, models.UpdateRecordArgs{
		ID:    next.ID(),
		Patch: patch,
	})
}
