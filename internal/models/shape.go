package models

import "math"

// Поля фигуры, для которых передаются числовые дельты
const (
	FieldX        = "x"
	FieldY        = "y"
	FieldRotation = "rotation"
	FieldOpacity  = "opacity"
	FieldProps    = "props"
	PropW         = "w"
	PropH         = "h"
)

// MinShapeSize is the smallest width or height a shape may have after a delta.
// Any positive size is valid, the clamp only keeps sizes from reaching zero or below.
const MinShapeSize = math.SmallestNonzeroFloat64

// Geometry holds the numeric shape fields that deltas operate on.
type Geometry struct {
	X        float64
	Y        float64
	Rotation float64
	Opacity  float64
	W        float64
	H        float64
}

// NewShape builds a shape record. Extra props are copied next to w and h.
func NewShape(id string, g Geometry, props map[string]any) Record {
	p := make(map[string]any, len(props)+2)
	for k, v := range props {
		p[k] = cloneValue(v)
	}
	p[PropW] = g.W
	p[PropH] = g.H

	return Record{
		FieldID:       id,
		FieldTypeName: TypeShape,
		FieldX:        g.X,
		FieldY:        g.Y,
		FieldRotation: g.Rotation,
		FieldOpacity:  g.Opacity,
		FieldProps:    p,
	}
}

// IsShape reports whether the record is a shape.
func (r Record) IsShape() bool {
	return r.TypeName() == TypeShape
}

// Props returns the nested props bag of a shape.
func (r Record) Props() (map[string]any, bool) {
	switch p := r[FieldProps].(type) {
	case map[string]any:
		return p, true
	case Record:
		return p, true
	default:
		return nil, false
	}
}

// Number returns a top-level numeric field.
func (r Record) Number(field string) (float64, bool) {
	v, ok := r[field]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// PropNumber returns a numeric field of the props bag.
func (r Record) PropNumber(field string) (float64, bool) {
	props, ok := r.Props()
	if !ok {
		return 0, false
	}
	v, ok := props[field]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// Geometry extracts the numeric fields of a shape. Missing fields read as zero.
func (r Record) Geometry() Geometry {
	var g Geometry
	g.X, _ = r.Number(FieldX)
	g.Y, _ = r.Number(FieldY)
	g.Rotation, _ = r.Number(FieldRotation)
	g.Opacity, _ = r.Number(FieldOpacity)
	g.W, _ = r.PropNumber(PropW)
	g.H, _ = r.PropNumber(PropH)
	return g
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
