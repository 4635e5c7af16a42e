// Package canon implements the deterministic JSON canonical form and
// content-hashing used pervasively across the planning core: every
// content-addressed identity in this repository (plan node IDs, plan
// digests, bundle hashes) is built on Canonicalize + ContentHash.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Hash is a 16-character lowercase hex content hash: the first 16 hex
// characters of SHA-256 over a canonical JSON string. Values outside
// [0-9a-f]{16} are invalid by construction — every constructor in this
// package produces a valid Hash or returns an error.
type Hash string

// Valid reports whether h has the shape of a content hash.
func (h Hash) Valid() bool {
	if len(h) != 16 {
		return false
	}
	for _, r := range string(h) {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

func (h Hash) String() string { return string(h) }

// CanonicalizeError reports a value that cannot be put into canonical
// form: NaN/Infinity, functions, channels, or values too large to
// represent faithfully (e.g. numbers overflowing float64 round-tripping
// is accepted, but non-finite values are not).
type CanonicalizeError struct {
	Path   string
	Reason string
}

func (e *CanonicalizeError) Error() string {
	return fmt.Sprintf("canonicalize: %s at %s", e.Reason, pathOrRoot(e.Path))
}

func pathOrRoot(p string) string {
	if p == "" {
		return "$"
	}
	return p
}

// Canonicalize converts v into its canonical JSON byte form:
//
//   - null and absent map values map to JSON null; absent object keys
//     are dropped entirely (never emitted as `"k":null`); null elements
//     inside arrays ARE preserved.
//   - booleans and strings use standard JSON encoding.
//   - numbers reject NaN/+Inf/-Inf; -0 normalizes to 0.
//   - functions, channels, and other non-data values fail with
//     CanonicalizeError.
//   - arrays encode in insertion order — canonicalization never sorts
//     array elements, only object keys.
//   - object keys sort by lexicographic byte order, recursively.
func Canonicalize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any, path string) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return encodeString(buf, t)
	case json.Number:
		return encodeJSONNumber(buf, t, path)
	case float64:
		return encodeFloat(buf, t, path)
	case int:
		return encodeFloat(buf, float64(t), path)
	case int64:
		return encodeFloat(buf, float64(t), path)
	case []any:
		return encodeArray(buf, t, path)
	case map[string]any:
		return encodeObject(buf, t, path)
	default:
		return encodeReflected(buf, v, path)
	}
}

// encodeReflected handles values decoded via struct tags rather than
// raw map[string]any — we round-trip through encoding/json to obtain a
// JSON-compatible shape and then canonicalize that, so callers can pass
// ordinary Go structs.
func encodeReflected(buf *bytes.Buffer, v any, path string) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &CanonicalizeError{Path: path, Reason: fmt.Sprintf("unsupported value: %v", err)}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return &CanonicalizeError{Path: path, Reason: fmt.Sprintf("re-decode failed: %v", err)}
	}
	return encodeValue(buf, generic, path)
}

func encodeString(buf *bytes.Buffer, s string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return &CanonicalizeError{Reason: fmt.Sprintf("invalid string: %v", err)}
	}
	buf.Write(raw)
	return nil
}

func encodeJSONNumber(buf *bytes.Buffer, n json.Number, path string) error {
	f, err := n.Float64()
	if err != nil {
		return &CanonicalizeError{Path: path, Reason: "malformed number"}
	}
	return encodeFloat(buf, f, path)
}

func encodeFloat(buf *bytes.Buffer, f float64, path string) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &CanonicalizeError{Path: path, Reason: "NaN and Infinity are not representable"}
	}
	if f == 0 {
		f = 0 // normalize -0 to 0
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return &CanonicalizeError{Path: path, Reason: fmt.Sprintf("invalid number: %v", err)}
	}
	buf.Write(raw)
	return nil
}

func encodeArray(buf *bytes.Buffer, arr []any, path string) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(buf, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeObject(buf *bytes.Buffer, obj map[string]any, path string) error {
	keys := make([]string, 0, len(obj))
	for k, v := range obj {
		if v == nil {
			continue // absent-by-null keys are dropped entirely
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		childPath := path + "." + k
		if err := encodeValue(buf, obj[k], childPath); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// ContentHash returns the first 16 lowercase hex characters of the
// SHA-256 digest of s.
func ContentHash(s []byte) Hash {
	sum := sha256.Sum256(s)
	return Hash(hex.EncodeToString(sum[:])[:16])
}

// HashValue canonicalizes v and returns its content hash. It is the composite
// operation most callers want; CanonicalizeError propagates unchanged.
func HashValue(v any) (Hash, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return ContentHash(b), nil
}
