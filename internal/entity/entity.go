// Package entity holds the typed views over raw API objects and the mapper
// that builds them.
package entity

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/gi8lino/tasklens/internal/terms"
)

// ErrUnknownKind is returned for resource kinds the mapper cannot build.
var ErrUnknownKind = errors.New("unknown resource kind")

// Kind names a resource collection of the remote API.
type Kind string

const (
	KindPeople   Kind = "people"
	KindProducts Kind = "products"
	KindItems    Kind = "items"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindPeople, KindProducts, KindItems}

// ParseKind returns the Kind named by s (case-insensitive).
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// CacheKey returns the default cache file name for the kind.
func (k Kind) CacheKey() string { return string(k) + ".json" }

// UsesTerms reports whether the kind's attributes are named through the term
// dictionary. Only items carry the configurable vocabulary; people and
// products keep their API field names.
func (k Kind) UsesTerms() bool { return k == KindItems }

// Entity is implemented by every typed resource.
type Entity interface {
	Kind() Kind
	DisplayName() string
	// FilterField is the field matched by text filters.
	FilterField() string
}

// Person is a member of the workspace.
type Person struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
}

// NewPerson builds a Person from a common-name object.
func NewPerson(raw map[string]any) *Person {
	return &Person{
		ID:        asInt(raw["id"]),
		FirstName: asString(raw["first_name"]),
		LastName:  asString(raw["last_name"]),
		Email:     asString(raw["email"]),
		Role:      asString(raw["role"]),
	}
}

func (p *Person) Kind() Kind { return KindPeople }

func (p *Person) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// FilterField matches people by last name only.
func (p *Person) FilterField() string { return p.LastName }

// Product groups items.
type Product struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// NewProduct builds a Product from a common-name object.
func NewProduct(raw map[string]any) *Product {
	return &Product{
		ID:          asInt(raw["id"]),
		Name:        asString(raw["name"]),
		Description: asString(raw["description"]),
	}
}

func (p *Product) Kind() Kind { return KindProducts }

func (p *Product) DisplayName() string { return p.Name }

func (p *Product) FilterField() string { return p.Name }

// Mapper converts raw API objects into entities, translating item field
// names through the term dictionary first.
type Mapper struct {
	Terms *terms.Dictionary
}

// ToEntity builds the entity of the given kind from raw.
func (m Mapper) ToEntity(kind Kind, raw map[string]any) (Entity, error) {
	common := raw
	if kind.UsesTerms() {
		common = m.Terms.ToCommon(raw)
	}
	switch kind {
	case KindPeople:
		return NewPerson(common), nil
	case KindProducts:
		return NewProduct(common), nil
	case KindItems:
		return NewTypedItem(common), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// cloneAttrs returns a shallow copy of raw.
func cloneAttrs(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	maps.Copy(out, raw)
	return out
}
