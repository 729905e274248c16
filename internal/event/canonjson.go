package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// objectBuilder assembles a JSON object with an explicit, caller-chosen key
// order. encoding/json already preserves declared struct-field order, but
// the tagged EventPayload union needs to splice a "type" discriminant ahead
// of variant-specific fields that live on distinct Go types, which a plain
// struct cannot express. This builder is the mechanism for that splice; it
// is used nowhere else because everywhere else a plain struct suffices.
type objectBuilder struct {
	buf   bytes.Buffer
	first bool
	err   error
}

func newObjectBuilder() *objectBuilder {
	b := &objectBuilder{first: true}
	b.buf.WriteByte('{')
	return b
}

// field always writes key:value, used for required fields.
func (b *objectBuilder) field(key string, value any) *objectBuilder {
	return b.raw(key, value, false)
}

// optional writes key:value only when present is true (the Go encoding of
// "omitted when None").
func (b *objectBuilder) optional(key string, value any, present bool) *objectBuilder {
	if !present {
		return b
	}
	return b.raw(key, value, false)
}

// flag writes a boolean field only when it is true ("omitted when false").
func (b *objectBuilder) flag(key string, value bool) *objectBuilder {
	if !value {
		return b
	}
	return b.raw(key, value, false)
}

func (b *objectBuilder) raw(key string, value any, _ bool) *objectBuilder {
	if b.err != nil {
		return b
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		b.err = fmt.Errorf("event: encoding field %q: %w", key, err)
		return b
	}
	if !b.first {
		b.buf.WriteByte(',')
	}
	b.first = false
	keyJSON, err := json.Marshal(key)
	if err != nil {
		b.err = err
		return b
	}
	b.buf.Write(keyJSON)
	b.buf.WriteByte(':')
	b.buf.Write(encoded)
	return b
}

func (b *objectBuilder) bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.buf.WriteByte('}')
	return b.buf.Bytes(), nil
}
