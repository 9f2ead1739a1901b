package tuple

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnsupportedValue is returned when a driver value has no Value mapping.
var ErrUnsupportedValue = errors.New("tuple: unsupported value type")

// Infer converts a text field into the narrowest matching Value.
// The empty string becomes Null; integers, floats and booleans are
// recognised; anything else stays Text.
func Infer(raw string) Value {
	if raw == "" {
		return Null{}
	}

	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Int(i)
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Float(f)
	}

	switch strings.ToLower(raw) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	return Text(raw)
}

// InferRecord converts a record of text fields into a Tuple.
func InferRecord(record []string) Tuple {
	t := make(Tuple, len(record))

	for i, field := range record {
		t[i] = Infer(field)
	}

	return t
}

// FromAny converts a decoded driver or JSON value into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint, uint64:
		u := toUint64(val)
		if u > math.MaxInt64 {
			return Text(strconv.FormatUint(u, 10)), nil
		}

		return Int(int64(u)), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case string:
		return Text(val), nil
	case []byte:
		return Text(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}

		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedValue, val.String())
		}

		return Float(f), nil
	case time.Time:
		return Text(val.UTC().Format(time.RFC3339Nano)), nil
	case *big.Int:
		return Text(val.String()), nil
	case [16]byte:
		return Text(uuid.UUID(val).String()), nil
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return nil, fmt.Errorf("%w: %T: %w", ErrUnsupportedValue, v, err)
		}

		if _, loops := inner.(driver.Valuer); loops {
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
		}

		return FromAny(inner)
	case fmt.Stringer:
		return Text(val.String()), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// FromAnySlice converts a row of decoded values into a Tuple.
func FromAnySlice(values []any) (Tuple, error) {
	t := make(Tuple, len(values))

	for i, v := range values {
		conv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}

		t[i] = conv
	}

	return t, nil
}

func toUint64(v any) uint64 {
	if u, ok := v.(uint); ok {
		return uint64(u)
	}

	return v.(uint64)
}
