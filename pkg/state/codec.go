package state

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/openvp/affe/pkg/types"
)

// entry is the encoded form of a persisted value. The kind selects the Go representation on decoding.
type entry struct {
	Kind  types.Kind      `cbor:"1,keyasint"`
	Value cbor.RawMessage `cbor:"2,keyasint"`
}

// Encodable reports whether v can be written to a durable store.
// Only primitives, strings and the null reference survive outside the process.
func Encodable(v any) bool {
	t := types.TypeOf(v)
	return t == nil || t.IsValueType() || t.Kind() == types.String
}

func encodeValue(v any) ([]byte, error) {
	if !Encodable(v) {
		return nil, errors.Errorf("value of type %s cannot be persisted", types.TypeOf(v))
	}
	k := types.Object
	if t := types.TypeOf(v); t != nil {
		k = t.Kind()
	}
	raw, err := cbor.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode value")
	}
	return cbor.Marshal(entry{Kind: k, Value: raw})
}

func decodeAs[T any](raw []byte) (any, error) {
	var v T
	if err := cbor.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %T", v)
	}
	return v, nil
}

func decodeValue(data []byte) (any, error) {
	var e entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "failed to decode entry")
	}
	switch e.Kind {
	case types.Bool:
		return decodeAs[bool](e.Value)
	case types.Int8:
		return decodeAs[int8](e.Value)
	case types.UInt8:
		return decodeAs[uint8](e.Value)
	case types.Int16:
		return decodeAs[int16](e.Value)
	case types.UInt16:
		return decodeAs[uint16](e.Value)
	case types.Int32:
		return decodeAs[int32](e.Value)
	case types.UInt32:
		return decodeAs[uint32](e.Value)
	case types.Int64:
		return decodeAs[int64](e.Value)
	case types.UInt64:
		return decodeAs[uint64](e.Value)
	case types.Float32:
		return decodeAs[float32](e.Value)
	case types.Float64:
		return decodeAs[float64](e.Value)
	case types.String:
		return decodeAs[string](e.Value)
	case types.Object:
		return nil, nil
	default:
		return nil, errors.Errorf("unsupported persisted kind %s", e.Kind)
	}
}
