package value

import (
	"errors"
	"fmt"
)

// ErrUnsupportedConversion is returned when the source or target of a
// conversion is not one of the scalar variants.
var ErrUnsupportedConversion = errors.New("unsupported conversion")

// Coerce converts v to the scalar kind to. When v already holds that kind it
// is returned unchanged. Float to integer conversions truncate toward zero;
// conversions to Char keep the low byte of the truncated integer.
func Coerce(v Value, to Kind) (Value, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil source", ErrUnsupportedConversion)
	}
	if !to.Scalar() || !v.Kind().Scalar() {
		return nil, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, v.Kind(), to)
	}
	if v.Kind() == to {
		return v, nil
	}

	switch to {
	case KindInt:
		switch x := v.(type) {
		case Float:
			return Int(int32(x)), nil
		case Double:
			return Int(int32(x)), nil
		case Char:
			return Int(int32(x)), nil
		}
	case KindFloat:
		switch x := v.(type) {
		case Int:
			return Float(float32(x)), nil
		case Double:
			return Float(float32(x)), nil
		case Char:
			return Float(float32(x)), nil
		}
	case KindDouble:
		switch x := v.(type) {
		case Int:
			return Double(float64(x)), nil
		case Float:
			return Double(float64(x)), nil
		case Char:
			return Double(float64(x)), nil
		}
	case KindChar:
		switch x := v.(type) {
		case Int:
			return Char(uint8(x)), nil
		case Float:
			return Char(uint8(int32(x))), nil
		case Double:
			return Char(uint8(int32(x))), nil
		}
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, v.Kind(), to)
}
