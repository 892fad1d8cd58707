package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Payload is a decoded webhook body. It is kept as an untyped tree so that
// update kinds the gateway does not model are still carried through intact.
type Payload map[string]any

// ParsePayload decodes a JSON object. Numbers are kept as json.Number so that
// 64-bit identifiers survive without float rounding. A literal `null` body
// yields a nil Payload and no error.
func ParsePayload(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode webhook payload: trailing data after object")
	}
	return p, nil
}

// ParsePayloadBytes is ParsePayload over a byte slice.
func ParsePayloadBytes(data []byte) (Payload, error) {
	return ParsePayload(bytes.NewReader(data))
}

// Has reports whether key is present, even with a null value.
func (p Payload) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p[key]
	return ok
}

// Object returns the nested object under key.
func (p Payload) Object(key string) (Payload, bool) {
	if p == nil {
		return nil, false
	}
	switch v := p[key].(type) {
	case map[string]any:
		return Payload(v), true
	case Payload:
		return v, true
	default:
		return nil, false
	}
}

// Int64 returns the integer under key. JSON integers, integral floats and
// numeric strings are accepted.
func (p Payload) Int64(key string) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return toInt64(p[key])
}

// String returns the string under key. Numbers and booleans are rendered in
// their JSON form.
func (p Payload) String(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	switch v := p[key].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	default:
		return "", false
	}
}

// Bool returns the boolean under key. The strings "true" and "false" are
// accepted.
func (p Payload) Bool(key string) (bool, bool) {
	if p == nil {
		return false, false
	}
	switch v := p[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
