package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var errNotObject = errors.New("expected a JSON object")

// Field is one key/value pair of a content item. The value is kept as raw
// JSON so arbitrary caller fields survive untouched.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Fields is a JSON object that keeps its keys in the order they were supplied.
type Fields []Field

// ParseFields decodes a JSON object, preserving key order.
func ParseFields(data []byte) (Fields, error) {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errNotObject
	}
	return f, nil
}

// Get returns the raw value stored under key.
func (f Fields) Get(key string) (json.RawMessage, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// String returns the value under key when it is a JSON string.
func (f Fields) String(key string) (string, bool) {
	raw, ok := f.Get(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Set replaces the value under key in place, or appends it.
func (f Fields) Set(key string, value json.RawMessage) Fields {
	for i, field := range f {
		if field.Key == key {
			out := append(Fields(nil), f...)
			out[i].Value = value
			return out
		}
	}
	return append(append(Fields(nil), f...), Field{Key: key, Value: value})
}

// Without returns a copy of f with key removed.
func (f Fields) Without(key string) Fields {
	out := make(Fields, 0, len(f))
	for _, field := range f {
		if field.Key != key {
			out = append(out, field)
		}
	}
	return out
}

// MarshalJSON writes the fields as an object in their stored order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, field.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if len(field.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(field.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object token by token so key order is kept.
// Duplicate keys keep their first position and their last value.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	out := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errNotObject
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		// Values read back from the indented file must compare equal to
		// the compact values callers sent.
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, raw); err != nil {
			return err
		}
		out = out.Set(key, compacted.Bytes())
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

// Item is one element of a collection kind: an id followed by caller fields.
type Item struct {
	ID     string
	Fields Fields
}

// NewItem builds an item, dropping any caller-supplied id field.
func NewItem(id string, fields Fields) Item {
	return Item{ID: id, Fields: fields.Without("id")}
}

// MarshalJSON writes {"id": ..., ...fields}.
func (it Item) MarshalJSON() ([]byte, error) {
	id, err := marshalString(it.ID)
	if err != nil {
		return nil, err
	}
	all := append(Fields{{Key: "id", Value: id}}, it.Fields.Without("id")...)
	return all.MarshalJSON()
}

// UnmarshalJSON accepts string ids and, for hand-edited files, bare numbers.
func (it *Item) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	if f == nil {
		return errNotObject
	}
	id := ""
	if raw, ok := f.Get("id"); ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			id = strings.TrimSpace(string(raw))
		}
	}
	it.ID = id
	it.Fields = f.Without("id")
	return nil
}

// TaggedItem is an item annotated with its kind for the aggregate listing.
type TaggedItem struct {
	Kind Kind
	Item Item
}

// MarshalJSON writes the item with a trailing "type" field. A caller field
// already named "type" is overwritten in place.
func (t TaggedItem) MarshalJSON() ([]byte, error) {
	id, err := marshalString(t.Item.ID)
	if err != nil {
		return nil, err
	}
	kind, err := marshalString(t.Kind.String())
	if err != nil {
		return nil, err
	}
	all := append(Fields{{Key: "id", Value: id}}, t.Item.Fields.Without("id")...)
	return all.Set("type", kind).MarshalJSON()
}

func marshalString(s string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := writeJSONString(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}
