// Package diff converts store changes into the smallest set of catalog mutations.
package diff

import (
	"github.com/iudanet/sketchsync/internal/models"
)

// поля, которые никогда не передаются как прямая замена
var deltaFields = map[string]bool{
	models.FieldID:       true,
	models.FieldX:        true,
	models.FieldY:        true,
	models.FieldRotation: true,
	models.FieldOpacity:  true,
	models.FieldProps:    true,
}

// ShapeDelta computes the delta that turns prev into next.
//
// Numeric offsets are emitted only for fields whose value changed, other changed
// fields are carried as overrides. A numeric change whose offset does not add back
// to the exact next value in float64 is carried as an override too. ok is false when the change cannot be expressed
// as a delta (not a shape, typeName or id changed, a field was removed, a geometry
// field stopped being numeric) and the caller must send the full record instead.
func ShapeDelta(prev, next models.Record) (delta models.ShapeDelta, ok bool) {
	if !prev.IsShape() || !next.IsShape() || prev.ID() != next.ID() {
		return models.ShapeDelta{}, false
	}

	prevProps, ok := prev.Props()
	if !ok {
		return models.ShapeDelta{}, false
	}
	nextProps, ok := next.Props()
	if !ok {
		return models.ShapeDelta{}, false
	}

	delta.ID = next.ID()

	if delta.Fields, ok = overrides(prev, next, deltaFields); !ok {
		return models.ShapeDelta{}, false
	}
	sizeFields := map[string]bool{models.PropW: true, models.PropH: true}
	if delta.Props, ok = overrides(prevProps, nextProps, sizeFields); !ok {
		return models.ShapeDelta{}, false
	}

	offsets := []struct {
		out       **float64
		overrides *map[string]any
		prev      map[string]any
		next      map[string]any
		field     string
	}{
		{&delta.DX, &delta.Fields, prev, next, models.FieldX},
		{&delta.DY, &delta.Fields, prev, next, models.FieldY},
		{&delta.DR, &delta.Fields, prev, next, models.FieldRotation},
		{&delta.DP, &delta.Fields, prev, next, models.FieldOpacity},
		{&delta.DW, &delta.Props, prevProps, nextProps, models.PropW},
		{&delta.DH, &delta.Props, prevProps, nextProps, models.PropH},
	}
	for _, o := range offsets {
		p, n, ok := numericValues(o.prev, o.next, o.field)
		if !ok {
			return models.ShapeDelta{}, false
		}
		if p == n {
			continue
		}
		if d := n - p; p+d == n {
			*o.out = models.Float(d)
			continue
		}
		// смещение не восстанавливает значение точно, поле уходит заменой
		if *o.overrides == nil {
			*o.overrides = make(map[string]any)
		}
		(*o.overrides)[o.field] = o.next[o.field]
	}

	return delta, true
}

// overrides collects changed keys of next, skipping the excluded ones.
// A key present in prev and missing in next cannot be expressed and yields ok=false.
func overrides(prev, next map[string]any, excluded map[string]bool) (map[string]any, bool) {
	var out map[string]any

	for k := range prev {
		if excluded[k] {
			continue
		}
		if _, ok := next[k]; !ok {
			return nil, false
		}
	}

	for k, v := range next {
		if excluded[k] {
			continue
		}
		if pv, ok := prev[k]; ok && models.ValuesEqual(pv, v) {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}

	return out, true
}

// numericValues returns both sides of a numeric field. A field missing on both sides
// reads as zero on both; a field that is missing or non-numeric on one side is inexpressible.
func numericValues(prev, next map[string]any, field string) (p, n float64, ok bool) {
	pv, prevHas := prev[field]
	nv, nextHas := next[field]
	if !prevHas && !nextHas {
		return 0, 0, true
	}
	if !prevHas || !nextHas {
		return 0, 0, false
	}

	p, pok := models.ToFloat(pv)
	n, nok := models.ToFloat(nv)
	return p, n, pok && nok
}
