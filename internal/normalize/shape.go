// Package normalize turns the content backend's payloads into canonical
// models. The backend returns the same entity in several shapes depending on
// its version and on which relations were populated: flat objects, objects
// wrapped in an "attributes" envelope, relations wrapped as {"data": {...}},
// and fields spelled with different casings. Everything here is tolerant:
// missing parts become empty values, and only the complete absence of a
// record is reported as an error.
package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// object is a decoded JSON object whose values are left raw so each field
// can be interpreted by whichever synonym ends up being used.
type object map[string]json.RawMessage

// maxEnvelopeDepth bounds {"data": {"data": ...}} unwrapping.
const maxEnvelopeDepth = 2

// shape recognizes one wire representation. unwrap reports whether the
// result is itself another payload to resolve (an envelope) rather than the
// record's own fields.
type shape struct {
	name   string
	match  func(object) (object, bool)
	unwrap bool
}

// shapes is tried in order; the first match wins.
var shapes = []shape{
	{name: "envelope", match: matchEnvelope, unwrap: true},
	{name: "attributes", match: matchAttributes},
	{name: "flat", match: matchFlat},
}

// matchEnvelope accepts {"data": {...}} where the outer object is not a
// record itself.
func matchEnvelope(o object) (object, bool) {
	if _, ok := o["id"]; ok {
		return nil, false
	}
	inner, ok := decodeObject(o["data"])
	return inner, ok
}

// matchAttributes accepts {"id": 1, "attributes": {...}} and lifts the
// attributes to the top level, keeping the outer identifiers.
func matchAttributes(o object) (object, bool) {
	attrs, ok := decodeObject(o["attributes"])
	if !ok {
		return nil, false
	}
	merged := make(object, len(attrs)+2)
	for k, v := range attrs {
		merged[k] = v
	}
	for _, k := range []string{"id", "documentId"} {
		if v, ok := o[k]; ok && populated(v) {
			merged[k] = v
		}
	}
	return merged, true
}

func matchFlat(o object) (object, bool) { return o, true }

// resolve runs the shape chain and returns the record's own fields.
func resolve(o object) object {
	for depth := 0; ; depth++ {
		s, out := matchShape(o, depth < maxEnvelopeDepth)
		if !s.unwrap {
			return out
		}
		o = out
	}
}

// nullEnvelope reports whether the envelopes around o end in a null data
// field instead of a record.
func nullEnvelope(o object) bool {
	for depth := 0; depth < maxEnvelopeDepth; depth++ {
		if _, ok := o["id"]; ok {
			return false
		}
		data, ok := o["data"]
		if !ok {
			return false
		}
		if isNull(data) {
			return true
		}
		if o, ok = decodeObject(data); !ok {
			return false
		}
	}
	return false
}

// matchShape returns the first shape accepting o. Envelopes are skipped
// once the nesting limit is reached, so deeper payloads are read as flat.
func matchShape(o object, allowEnvelope bool) (shape, object) {
	for _, s := range shapes {
		if s.unwrap && !allowEnvelope {
			continue
		}
		if out, ok := s.match(o); ok {
			return s, out
		}
	}
	return shapes[len(shapes)-1], o
}

func decodeObject(raw json.RawMessage) (object, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return o, true
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// populated reports whether raw carries a usable value: not null, not an
// empty string and not an empty object or array.
func populated(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", `""`, "{}", "[]":
		return false
	}
	return true
}

// text returns raw as a non-empty string. Non-string values are rejected so
// an unpopulated relation (a bare foreign key) is not mistaken for a name.
func text(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// str returns the first synonym that holds a non-empty string.
func (o object) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := text(o[k]); ok {
			return s
		}
	}
	return ""
}

// first returns the first synonym holding a populated value.
func (o object) first(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && populated(v) {
			return v, true
		}
	}
	return nil, false
}

// number parses a numeric identifier given either as a JSON number or as a
// numeric string.
func number(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	lit := string(raw)
	if raw[0] == '"' {
		s, ok := text(raw)
		if !ok {
			return 0, false
		}
		lit = strings.TrimSpace(s)
	}
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil && f == float64(int64(f)) {
		return int64(f), true
	}
	return 0, false
}

// timestamp parses RFC 3339 timestamps; anything else yields the zero time.
// Results are in UTC so normalizing twice gives identical values.
func timestamp(o object, keys ...string) time.Time {
	s := o.str(keys...)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
