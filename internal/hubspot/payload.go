package hubspot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Field is a single payload entry.
type Field struct {
	Key   string
	Value string
}

// Payload is the flat, ordered key/value map attached to an inbound event.
// A key that is not present models an undefined value; an empty string is a
// present value.
type Payload struct {
	fields []Field
}

// NewPayload builds a payload from alternating key/value arguments.
// A trailing key without a value is ignored.
func NewPayload(pairs ...string) Payload {
	var p Payload
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Set(pairs[i], pairs[i+1])
	}
	return p
}

// Lookup returns the value for key and whether it is present.
func (p Payload) Lookup(key string) (string, bool) {
	for _, f := range p.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Get returns the value for key, or "" when absent.
func (p Payload) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Has reports whether key is present with a non-empty value.
func (p Payload) Has(key string) bool {
	return p.Get(key) != ""
}

// Set replaces the value of an existing key in place or appends a new one.
func (p *Payload) Set(key, value string) {
	for i := range p.fields {
		if p.fields[i].Key == key {
			p.fields[i].Value = value
			return
		}
	}
	p.fields = append(p.fields, Field{Key: key, Value: value})
}

// Without returns a copy of the payload minus the given keys, keeping order.
func (p Payload) Without(keys ...string) Payload {
	excluded := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		excluded[k] = struct{}{}
	}

	out := Payload{fields: make([]Field, 0, len(p.fields))}
	for _, f := range p.fields {
		if _, skip := excluded[f.Key]; skip {
			continue
		}
		out.fields = append(out.fields, f)
	}
	return out
}

// Fields returns the entries in insertion order.
func (p Payload) Fields() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

func (p Payload) Len() int {
	return len(p.fields)
}

// UnmarshalJSON decodes a JSON object keeping key order. Strings are taken as
// is, numbers and booleans keep their literal text, null is treated as absent
// and nested values keep their compact JSON text.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	if tok == nil {
		*p = Payload{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("payload: expected a JSON object")
	}

	var out Payload
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("payload: expected a string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("payload: value for %q: %w", key, err)
		}

		value, present, err := coerceRawValue(raw)
		if err != nil {
			return fmt.Errorf("payload: value for %q: %w", key, err)
		}
		if present {
			out.Set(key, value)
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("payload: %w", err)
	}

	*p = out
	return nil
}

func coerceRawValue(raw json.RawMessage) (string, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return "", false, nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case trimmed[0] == '{' || trimmed[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", false, err
		}
		return buf.String(), true, nil
	default:
		return string(trimmed), true, nil
	}
}

// MarshalJSON encodes the payload as a JSON object in insertion order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalJSON(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := marshalJSON(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalJSON encodes v the way JSON.stringify does: no HTML escaping and no
// trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (p Payload) String() string {
	parts := make([]string, 0, len(p.fields))
	for _, f := range p.fields {
		parts = append(parts, f.Key+"="+f.Value)
	}
	return strings.Join(parts, " ")
}
