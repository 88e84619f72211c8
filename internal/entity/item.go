package entity

import "strings"

// Variant is the concrete flavour of an Item, selected by its "type" field.
type Variant string

const (
	VariantGeneric Variant = "generic"
	VariantTask    Variant = "task"
	VariantStory   Variant = "story"
	VariantBug     Variant = "bug"
	VariantEpic    Variant = "epic"
)

// variants maps discriminant values to variants; anything else is generic.
var variants = map[string]Variant{
	"task":    VariantTask,
	"story":   VariantStory,
	"feature": VariantStory,
	"bug":     VariantBug,
	"defect":  VariantBug,
	"epic":    VariantEpic,
}

// variantFor resolves a discriminant value.
func variantFor(discriminant string) Variant {
	if v, ok := variants[strings.ToLower(strings.TrimSpace(discriminant))]; ok {
		return v
	}
	return VariantGeneric
}

// Assignee is the person an item is assigned to.
type Assignee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Item is a unit of work. Orphaned items reference a product that no longer
// resolves and are hidden from listings.
type Item struct {
	Number      int       `json:"number"`
	Variant     Variant   `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Score       string    `json:"score,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Assignee    *Assignee `json:"assignee,omitempty"`
	ProductID   int       `json:"product_id"`

	attrs map[string]any
}

// NewTypedItem builds an Item, picking the variant from the "type" field.
func NewTypedItem(raw map[string]any) *Item {
	it := &Item{
		Number:      asInt(raw["number"]),
		Variant:     variantFor(asString(raw["type"])),
		Title:       asString(raw["title"]),
		Description: asString(raw["description"]),
		Status:      asString(raw["status"]),
		Score:       asString(raw["score"]),
		Tags:        asStrings(raw["tags"]),
		Assignee:    newAssignee(raw["assignee"]),
		ProductID:   productRef(raw["product"]),
		attrs:       cloneAttrs(raw),
	}
	return it
}

func (i *Item) Kind() Kind { return KindItems }

func (i *Item) DisplayName() string { return i.Title }

func (i *Item) FilterField() string { return i.Title }

// Orphaned reports whether the item lost its parent product.
func (i *Item) Orphaned() bool { return i.ProductID == 0 }

// Attributes returns a copy of the item's raw attributes in common names.
func (i *Item) Attributes() map[string]any { return cloneAttrs(i.attrs) }

// AssignedTo reports whether the item is assigned to email (case-insensitive).
func (i *Item) AssignedTo(email string) bool {
	if i.Assignee == nil || email == "" {
		return false
	}
	return strings.EqualFold(i.Assignee.Email, email)
}

// newAssignee accepts an object {name,email} or a bare email/name string.
func newAssignee(v any) *Assignee {
	switch x := v.(type) {
	case map[string]any:
		a := &Assignee{Name: asString(x["name"]), Email: asString(x["email"])}
		if a.Name == "" && a.Email == "" {
			return nil
		}
		return a
	case string:
		if x = strings.TrimSpace(x); x == "" {
			return nil
		}
		if strings.Contains(x, "@") {
			return &Assignee{Email: x}
		}
		return &Assignee{Name: x}
	default:
		return nil
	}
}

// productRef accepts an embedded product object or a bare product id.
func productRef(v any) int {
	if obj := asObject(v); obj != nil {
		return asInt(obj["id"])
	}
	return asInt(v)
}
