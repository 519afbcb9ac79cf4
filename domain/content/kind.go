package content

import (
	pkgerrors "portfolio/pkg/errors"
)

// Kind is the logical category of a content item. Its value is the
// singular name clients use on the wire.
type Kind string

const (
	KindProject Kind = "project"
	KindSkill   Kind = "skill"
	KindSocial  Kind = "social"
	KindQuote   Kind = "quote"
	KindContact Kind = "contact"
	KindAbout   Kind = "about"
)

// CollectionKinds are the kinds stored as ordered item lists, in the order
// the aggregate listing walks them.
var CollectionKinds = []Kind{KindProject, KindSkill, KindSocial, KindQuote}

// SingletonKinds hold exactly one current value.
var SingletonKinds = []Kind{KindContact, KindAbout}

var storageKeys = map[Kind]string{
	KindProject: "projects",
	KindSkill:   "skills",
	KindSocial:  "social",
	KindQuote:   "quotes",
	KindContact: "contact",
	KindAbout:   "about",
}

// legacyAliases accepts the plural storage keys older clients sent directly.
var legacyAliases = map[string]Kind{
	"projects": KindProject,
	"skills":   KindSkill,
	"quotes":   KindQuote,
}

// ParseKind resolves a client-supplied kind name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := storageKeys[k]; ok {
		return k, nil
	}
	if alias, ok := legacyAliases[name]; ok {
		return alias, nil
	}
	return "", pkgerrors.NewUnknownKindError(name)
}

// String returns the canonical client-facing name.
func (k Kind) String() string {
	return string(k)
}

// StorageKey returns the top-level document key holding this kind.
func (k Kind) StorageKey() string {
	return storageKeys[k]
}

// IsSingleton reports whether the kind has a single value instead of items.
func (k Kind) IsSingleton() bool {
	return k == KindContact || k == KindAbout
}
