package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{name: "valid", record: Record{"id": "a", "typeName": "shape"}},
		{name: "nil", record: nil, wantErr: true},
		{name: "missing id", record: Record{"typeName": "shape"}, wantErr: true},
		{name: "non string id", record: Record{"id": 1, "typeName": "shape"}, wantErr: true},
		{name: "missing typeName", record: Record{"id": "a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecord)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	orig := NewShape("shape1", Geometry{X: 1, Y: 2, W: 10, H: 20, Opacity: 1},
		map[string]any{"tags": []any{"a", map[string]any{"k": "v"}}})

	cp := orig.Clone()
	require.True(t, orig.Equal(cp))

	props, _ := cp.Props()
	props[PropW] = 99.0
	props["tags"].([]any)[1].(map[string]any)["k"] = "changed"
	cp[FieldX] = 100.0

	w, _ := orig.PropNumber(PropW)
	assert.Equal(t, 10.0, w)
	x, _ := orig.Number(FieldX)
	assert.Equal(t, 1.0, x)
	origProps, _ := orig.Props()
	assert.Equal(t, "v", origProps["tags"].([]any)[1].(map[string]any)["k"])

	assert.Nil(t, Record(nil).Clone())
}

func TestRecord_EqualAcrossJSON(t *testing.T) {
	orig := NewShape("shape1", Geometry{X: 1, Y: 2, W: 10, H: 20, Opacity: 0.5}, map[string]any{"count": 3})

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	decoded, err := DecodeRecord(data)
	require.NoError(t, err)

	assert.True(t, orig.Equal(decoded))
	assert.True(t, decoded.Equal(orig))

	decoded[FieldY] = 3.0
	assert.False(t, orig.Equal(decoded))

	assert.True(t, Record(nil).Equal(nil))
	assert.False(t, Record(nil).Equal(Record{}))
}

func TestDecodeRecord_Invalid(t *testing.T) {
	_, err := DecodeRecord([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(1, 1.0))
	assert.True(t, ValuesEqual(int64(2), json.Number("2")))
	assert.False(t, ValuesEqual(1, "1"))
	assert.True(t, ValuesEqual([]any{"a", 1}, []any{"a", 1.0}))
	assert.False(t, ValuesEqual([]any{"a"}, []any{"a", "b"}))
	assert.True(t, ValuesEqual(nil, nil))
	assert.False(t, ValuesEqual(nil, false))
	assert.True(t, ValuesEqual(map[string]any{"a": true}, Record{"a": true}))
}

func TestRecord_Geometry(t *testing.T) {
	shape := NewShape("s", Geometry{X: 1, Y: 2, Rotation: 0.5, Opacity: 0.7, W: 30, H: 40}, nil)
	assert.Equal(t, Geometry{X: 1, Y: 2, Rotation: 0.5, Opacity: 0.7, W: 30, H: 40}, shape.Geometry())
	assert.True(t, shape.IsShape())
	assert.Equal(t, "s", shape.ID())
	assert.Equal(t, TypeShape, shape.TypeName())

	assert.Equal(t, Geometry{}, Record{"id": "doc", "typeName": TypeDocument}.Geometry())
}
