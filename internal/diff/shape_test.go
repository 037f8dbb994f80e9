package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sketchsync/internal/models"
)

func baseShape() models.Record {
	return models.NewShape("shape1", models.Geometry{X: 10, Y: 20, Opacity: 1, W: 100, H: 50},
		map[string]any{"color": "black", "text": "hi"})
}

func TestShapeDelta_OnlyChangedFields(t *testing.T) {
	prev := baseShape()
	next := prev.Clone()
	next[models.FieldX] = 15.0

	delta, ok := ShapeDelta(prev, next)
	require.True(t, ok)

	require.NotNil(t, delta.DX)
	assert.Equal(t, 5.0, *delta.DX)
	assert.Nil(t, delta.DY)
	assert.Nil(t, delta.DW)
	assert.Nil(t, delta.DH)
	assert.Nil(t, delta.DR)
	assert.Nil(t, delta.DP)
	assert.Empty(t, delta.Fields)
	assert.Empty(t, delta.Props)
	assert.Equal(t, "shape1", delta.ID)
}

func TestShapeDelta_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r models.Record)
	}{
		{name: "move", mutate: func(r models.Record) {
			r[models.FieldX] = 42.0
			r[models.FieldY] = -7.0
		}},
		{name: "resize", mutate: func(r models.Record) {
			props, _ := r.Props()
			props[models.PropW] = 10.0
			props[models.PropH] = 200.0
		}},
		{name: "rotate and fade", mutate: func(r models.Record) {
			r[models.FieldRotation] = 3.0
			r[models.FieldOpacity] = 0.25
		}},
		{name: "prop override", mutate: func(r models.Record) {
			props, _ := r.Props()
			props["color"] = "red"
			props["extra"] = []any{1.0, 2.0}
		}},
		{name: "top level override", mutate: func(r models.Record) {
			r["parentId"] = "page:2"
			r["index"] = "a2"
		}},
		{name: "mixed", mutate: func(r models.Record) {
			r[models.FieldX] = 11.0
			r["isLocked"] = true
			props, _ := r.Props()
			props[models.PropH] = 51.0
			props["text"] = "bye"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := baseShape()
			next := prev.Clone()
			tt.mutate(next)

			delta, ok := ShapeDelta(prev, next)
			require.True(t, ok)
			require.False(t, delta.IsEmpty())

			applied, err := models.ApplyDelta(prev, delta)
			require.NoError(t, err)
			assert.True(t, next.Equal(applied), "applied: %v", applied)
		})
	}
}

func TestShapeDelta_NotExpressible(t *testing.T) {
	shape := baseShape()

	removedField := shape.Clone()
	shape["parentId"] = "page:1"

	textX := shape.Clone()
	textX[models.FieldX] = "left"

	removedProp := shape.Clone()
	props, _ := removedProp.Props()
	delete(props, "text")

	otherID := shape.Clone()
	otherID[models.FieldID] = "shape2"

	page := models.Record{"id": "shape1", "typeName": models.TypePage}

	tests := []struct {
		name       string
		prev, next models.Record
	}{
		{name: "field removed", prev: shape, next: removedField},
		{name: "non numeric x", prev: shape, next: textX},
		{name: "prop removed", prev: shape, next: removedProp},
		{name: "id changed", prev: shape, next: otherID},
		{name: "typeName changed", prev: shape, next: page},
		{name: "not a shape", prev: page, next: page},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ShapeDelta(tt.prev, tt.next)
			assert.False(t, ok)
		})
	}
}

func TestShapeDelta_NoChange(t *testing.T) {
	prev := baseShape()
	delta, ok := ShapeDelta(prev, prev.Clone())
	require.True(t, ok)
	assert.True(t, delta.IsEmpty())
}

func TestShapeDelta_FractionalRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		prop     bool
		prev     float64
		next     float64
		override bool
	}{
		{name: "x 1 to 0.3", field: models.FieldX, prev: 1, next: 0.3, override: true},
		{name: "x 123.456 to 0.1", field: models.FieldX, prev: 123.456, next: 0.1, override: true},
		{name: "y 0.7 to 0.1", field: models.FieldY, prev: 0.7, next: 0.1, override: true},
		{name: "x 0.1 to 0.2", field: models.FieldX, prev: 0.1, next: 0.2},
		{name: "rotation 10 to 10.1", field: models.FieldRotation, prev: 10, next: 10.1},
		{name: "opacity 1 to 0.3", field: models.FieldOpacity, prev: 1, next: 0.3, override: true},
		{name: "w 123.456 to 0.1", field: models.PropW, prop: true, prev: 123.456, next: 0.1, override: true},
		{name: "h 100 to 0.5", field: models.PropH, prop: true, prev: 100, next: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := baseShape()
			target := map[string]any(prev)
			if tt.prop {
				target, _ = prev.Props()
			}
			target[tt.field] = tt.prev

			next := prev.Clone()
			target = next
			if tt.prop {
				target, _ = next.Props()
			}
			target[tt.field] = tt.next

			delta, ok := ShapeDelta(prev, next)
			require.True(t, ok)
			require.NoError(t, delta.Validate())

			overrides := delta.Fields
			if tt.prop {
				overrides = delta.Props
			}
			_, overridden := overrides[tt.field]
			assert.Equal(t, tt.override, overridden)

			applied, err := models.ApplyDelta(prev, delta)
			require.NoError(t, err)
			assert.True(t, next.Equal(applied), "applied: %v", applied)
		})
	}
}
