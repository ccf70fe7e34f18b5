// Package attributes splits open-ended payloads into fixed queue fields and a
// bounded set of overflow attributes, and flattens stored attributes back
// into rows.
package attributes

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-moderation/pkg/types"
	jsoniter "github.com/json-iterator/go"
)

// DefaultMaxAttributes limits how many attributes an item may carry.
const DefaultMaxAttributes = 10

// Key is the row key that carries serialized attributes.
const Key = "attributes"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec encodes and decodes item attributes.
type Codec struct {
	max int
}

// NewCodec returns a codec enforcing max attributes. Non-positive values use
// DefaultMaxAttributes.
func NewCodec(max int) *Codec {
	if max <= 0 {
		max = DefaultMaxAttributes
	}
	return &Codec{max: max}
}

// Max returns the attribute limit.
func (c *Codec) Max() int {
	if c == nil || c.max <= 0 {
		return DefaultMaxAttributes
	}
	return c.max
}

// Encode copies payload keys listed in known into fields and merges the rest
// over current as attributes. Nil values remove the attribute. attrs is nil
// when no attributes remain.
func (c *Codec) Encode(known []string, payload, current map[string]any) (fields, attrs map[string]any, err error) {
	schema := make(map[string]struct{}, len(known))
	for _, name := range known {
		schema[name] = struct{}{}
	}

	fields = make(map[string]any, len(payload))
	attrs = make(map[string]any, len(current))
	for k, v := range current {
		attrs[k] = v
	}
	for name, value := range payload {
		if name == Key {
			continue
		}
		if _, ok := schema[name]; ok {
			fields[name] = value
			continue
		}
		if value == nil {
			delete(attrs, name)
			continue
		}
		attrs[name] = value
	}

	if len(attrs) > c.Max() {
		return nil, nil, fmt.Errorf("%w (%d > %d)", types.ErrAttributeLimitExceeded, len(attrs), c.Max())
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	return fields, attrs, nil
}

// Marshal serializes attributes for storage. Empty sets serialize to nil.
func (c *Codec) Marshal(attrs map[string]any) (*string, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	blob := string(raw)
	return &blob, nil
}

// Unmarshal parses a stored attribute blob. Malformed blobs yield an empty
// map; legacy rows are known to contain them.
func (c *Codec) Unmarshal(blob string) map[string]any {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(blob), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// Decode flattens the attributes carried by row into a copy of the row. The
// attributes key is always removed from the result.
func (c *Codec) Decode(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	raw, ok := out[Key]
	delete(out, Key)
	if !ok || raw == nil {
		return out
	}

	var attrs map[string]any
	switch value := raw.(type) {
	case map[string]any:
		attrs = value
	case types.Payload:
		attrs = value
	case string:
		attrs = c.Unmarshal(value)
	case *string:
		if value != nil {
			attrs = c.Unmarshal(*value)
		}
	case []byte:
		attrs = c.Unmarshal(string(value))
	}
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
