package util

import (
	"encoding/json"
)

// Decode converts a bus payload into T. Typed values pass through; raw
// JSON and anything else go through encoding/json. A nil payload yields
// the zero value.
func Decode[T any](src any) (T, error) {
	var out T
	switch v := src.(type) {
	case nil:
		return out, nil
	case T:
		return v, nil
	case *T:
		if v != nil {
			out = *v
		}
		return out, nil
	case json.RawMessage:
		err := json.Unmarshal(v, &out)
		return out, err
	case []byte:
		err := json.Unmarshal(v, &out)
		return out, err
	case string:
		err := json.Unmarshal([]byte(v), &out)
		return out, err
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return out, err
		}
		err = json.Unmarshal(b, &out)
		return out, err
	}
}

// Raw returns src as JSON bytes.
func Raw(src any) ([]byte, error) {
	switch v := src.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
