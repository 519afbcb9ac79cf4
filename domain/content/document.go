package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the whole persisted content record.
type Document struct {
	Projects []Item `json:"projects"`
	Skills   []Item `json:"skills"`
	Social   []Item `json:"social"`
	Quotes   []Item `json:"quotes"`
	Contact  Fields `json:"contact"`
	About    string `json:"about"`

	// Revision is maintained by stores that support optimistic writes.
	// It is never part of the encoded document.
	Revision int64 `json:"-"`
}

// NewDocument returns the empty default document.
func NewDocument() *Document {
	d := &Document{}
	d.Normalize()
	return d
}

// Normalize replaces missing collections and singletons with empty values
// so every encoding carries all six keys.
func (d *Document) Normalize() {
	if d.Projects == nil {
		d.Projects = []Item{}
	}
	if d.Skills == nil {
		d.Skills = []Item{}
	}
	if d.Social == nil {
		d.Social = []Item{}
	}
	if d.Quotes == nil {
		d.Quotes = []Item{}
	}
	if d.Contact == nil {
		d.Contact = Fields{}
	}
}

// Items returns the collection stored for k.
func (d *Document) Items(k Kind) []Item {
	switch k {
	case KindProject:
		return d.Projects
	case KindSkill:
		return d.Skills
	case KindSocial:
		return d.Social
	case KindQuote:
		return d.Quotes
	}
	return nil
}

// SetItems replaces the collection stored for k.
func (d *Document) SetItems(k Kind, items []Item) {
	if items == nil {
		items = []Item{}
	}
	switch k {
	case KindProject:
		d.Projects = items
	case KindSkill:
		d.Skills = items
	case KindSocial:
		d.Social = items
	case KindQuote:
		d.Quotes = items
	}
}

// IndexOf returns the position of the item with id in collection k, or -1.
func (d *Document) IndexOf(k Kind, id string) int {
	for i, it := range d.Items(k) {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// HasID reports whether collection k already uses id.
func (d *Document) HasID(k Kind, id string) bool {
	return d.IndexOf(k, id) >= 0
}

// Value returns the raw value stored for k: []Item for collections,
// Fields for contact and string for about.
func (d *Document) Value(k Kind) interface{} {
	switch k {
	case KindContact:
		return d.Contact
	case KindAbout:
		return d.About
	default:
		return d.Items(k)
	}
}

// ResetSingleton restores a singleton kind to its empty value.
func (d *Document) ResetSingleton(k Kind) {
	switch k {
	case KindContact:
		d.Contact = Fields{}
	case KindAbout:
		d.About = ""
	}
}

// Tagged lists every collection item tagged with its kind. Singletons are
// not part of the aggregate.
func (d *Document) Tagged() []TaggedItem {
	var n int
	for _, k := range CollectionKinds {
		n += len(d.Items(k))
	}
	out := make([]TaggedItem, 0, n)
	for _, k := range CollectionKinds {
		for _, it := range d.Items(k) {
			out = append(out, TaggedItem{Kind: k, Item: it})
		}
	}
	return out
}

// Encode renders the document pretty-printed with two-space indentation
// and without HTML escaping.
func Encode(d *Document) ([]byte, error) {
	d.Normalize()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode content document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a persisted document, filling absent keys with defaults.
// An about value written as an object by older versions is reduced to its
// text the same way incoming about updates are.
func Decode(data []byte) (*Document, error) {
	var wire struct {
		Projects []Item          `json:"projects"`
		Skills   []Item          `json:"skills"`
		Social   []Item          `json:"social"`
		Quotes   []Item          `json:"quotes"`
		Contact  Fields          `json:"contact"`
		About    json.RawMessage `json:"about"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode content document: %w", err)
	}

	about := ""
	if len(wire.About) > 0 && string(wire.About) != "null" {
		text, err := AboutText(wire.About)
		if err != nil {
			return nil, fmt.Errorf("failed to decode content document: %w", err)
		}
		about = text
	}

	d := &Document{
		Projects: wire.Projects,
		Skills:   wire.Skills,
		Social:   wire.Social,
		Quotes:   wire.Quotes,
		Contact:  wire.Contact,
		About:    about,
	}
	d.Normalize()
	return d, nil
}
