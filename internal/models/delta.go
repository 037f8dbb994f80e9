package models

import (
	"fmt"
	"math"
)

// ShapeDelta описывает минимальное изменение фигуры.
// Числовые поля - аддитивные смещения, Fields и Props - прямая замена значений.
// Дельта не сохраняется в логе: она существует только как аргумент мутации.
type ShapeDelta struct {
	Fields map[string]any `json:"fields,omitempty"` // Fields замена полей верхнего уровня
	Props  map[string]any `json:"props,omitempty"`  // Props замена полей props кроме w/h
	DX     *float64       `json:"dx,omitempty"`
	DY     *float64       `json:"dy,omitempty"`
	DW     *float64       `json:"dw,omitempty"`
	DH     *float64       `json:"dh,omitempty"`
	DR     *float64       `json:"dr,omitempty"`
	DP     *float64       `json:"dp,omitempty"`
	ID     string         `json:"id"`
}

// Float returns a pointer to v. Used to fill optional delta fields.
func Float(v float64) *float64 {
	return &v
}

// IsEmpty reports whether applying the delta would change nothing.
func (d *ShapeDelta) IsEmpty() bool {
	return len(d.Fields) == 0 && len(d.Props) == 0 &&
		d.DX == nil && d.DY == nil && d.DW == nil && d.DH == nil && d.DR == nil && d.DP == nil
}

// Validate rejects deltas that cannot be applied unambiguously.
func (d *ShapeDelta) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: delta without id", ErrInvalidRecord)
	}

	for _, reserved := range []string{FieldID, FieldTypeName, FieldProps} {
		if _, ok := d.Fields[reserved]; ok {
			return fmt.Errorf("%w: field %q cannot be overridden by a shape delta", ErrInvalidRecord, reserved)
		}
	}

	overlaps := []struct {
		delta  *float64
		values map[string]any
		field  string
	}{
		{d.DX, d.Fields, FieldX},
		{d.DY, d.Fields, FieldY},
		{d.DR, d.Fields, FieldRotation},
		{d.DP, d.Fields, FieldOpacity},
		{d.DW, d.Props, PropW},
		{d.DH, d.Props, PropH},
	}
	for _, o := range overlaps {
		if o.delta == nil {
			continue
		}
		if _, ok := o.values[o.field]; ok {
			return fmt.Errorf("%w: %s", ErrOverlappingDelta, o.field)
		}
	}

	return nil
}

// ApplyDelta returns a new shape with the delta applied. The input is not modified.
// Sizes are clamped to MinShapeSize and opacity to [0, 1].
func ApplyDelta(shape Record, d ShapeDelta) (Record, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	next := shape.Clone()

	for k, v := range d.Fields {
		next[k] = cloneValue(v)
	}

	props, ok := next.Props()
	if !ok {
		if len(d.Props) > 0 || d.DW != nil || d.DH != nil {
			return nil, fmt.Errorf("%w: shape %s has no props", ErrInvalidRecord, shape.ID())
		}
	}
	for k, v := range d.Props {
		props[k] = cloneValue(v)
	}

	offsets := []struct {
		delta  *float64
		target map[string]any
		field  string
	}{
		{d.DX, next, FieldX},
		{d.DY, next, FieldY},
		{d.DR, next, FieldRotation},
		{d.DP, next, FieldOpacity},
		{d.DW, props, PropW},
		{d.DH, props, PropH},
	}
	for _, o := range offsets {
		if o.delta == nil {
			continue
		}
		current, ok := ToFloat(o.target[o.field])
		if !ok {
			return nil, fmt.Errorf("%w: %s of %s", ErrNotNumeric, o.field, shape.ID())
		}
		o.target[o.field] = current + *o.delta
	}

	// Ограничения применяются только к полям, которые затронула дельта
	for _, size := range []struct {
		delta *float64
		field string
	}{{d.DW, PropW}, {d.DH, PropH}} {
		if _, overridden := d.Props[size.field]; size.delta == nil && !overridden {
			continue
		}
		if v, ok := ToFloat(props[size.field]); ok {
			props[size.field] = math.Max(v, MinShapeSize)
		}
	}
	if _, overridden := d.Fields[FieldOpacity]; d.DP != nil || overridden {
		if v, ok := next.Number(FieldOpacity); ok {
			next[FieldOpacity] = clamp(v, 0, 1)
		}
	}

	return next, nil
}
