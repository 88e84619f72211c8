// Package update computes the attribute payload sent when mutating an item.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gi8lino/tasklens/internal/classify"
	"github.com/gi8lino/tasklens/internal/connector"
	"github.com/gi8lino/tasklens/internal/entity"
	"github.com/gi8lino/tasklens/internal/terms"
)

var (
	// ErrNotFound is returned when the current item cannot be fetched.
	ErrNotFound = errors.New("item not found")
	// ErrMissingNumber is returned when the current item carries no number.
	ErrMissingNumber = errors.New("current item has no number")
)

// numberAttr identifies an item; it is always copied from the current item.
const numberAttr = "number"

// tagSeparator joins list values into the delimited string the API expects.
const tagSeparator = ","

// MutableAttributes is the allow-list of attributes an update may carry,
// in common names. "number" is handled separately and "type" is never sent.
var MutableAttributes = map[string]struct{}{
	"title":       {},
	"description": {},
	"score":       {},
	"tags":        {},
	"status":      {},
	"assignee":    {},
	"estimate":    {},
}

// Draft holds the attribute changes proposed by a caller.
type Draft map[string]any

// Payload is the mapping handed to the connector's UpdateItem.
type Payload map[string]any

// Builder computes update payloads against the live state of an item.
type Builder struct {
	Connector connector.Connector
	Terms     *terms.Dictionary
}

// Build fetches item id and merges draft over its mutable attributes.
// Unknown draft keys and values without a scalar form are dropped.
func (b *Builder) Build(ctx context.Context, id int, draft Draft) (Payload, error) {
	v, err := b.Connector.FetchByID(ctx, entity.KindItems, id)
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}
	resp := classify.Classify(v)
	if resp.Kind != classify.KindObject {
		return nil, fmt.Errorf("%w: %d: %s", ErrNotFound, id, resp.Message())
	}
	return Merge(b.Terms.ToCommon(resp.Object), b.normalize(draft))
}

// Apply builds the payload for id and sends it.
func (b *Builder) Apply(ctx context.Context, id int, draft Draft) (Payload, any, error) {
	payload, err := b.Build(ctx, id, draft)
	if err != nil {
		return nil, nil, err
	}
	res, err := b.Connector.UpdateItem(ctx, id, payload)
	if err != nil {
		return payload, nil, fmt.Errorf("update item %d: %w", id, err)
	}
	if classify.IsErrorObject(res) {
		return payload, res, fmt.Errorf("update item %d rejected: %s", id, classify.Classify(res).Message())
	}
	return payload, res, nil
}

// Merge combines the current attributes (common names) with draft.
func Merge(current map[string]any, draft Draft) (Payload, error) {
	number, ok := current[numberAttr]
	if !ok || number == nil {
		return nil, ErrMissingNumber
	}

	out := Payload{numberAttr: number}
	for name := range MutableAttributes {
		val, ok := draft[name]
		if !ok {
			val, ok = current[name]
		}
		if !ok {
			continue
		}
		if flat, ok := flatten(val); ok {
			out[name] = flat
		}
	}
	return out, nil
}

// normalize renames draft keys given in API vocabulary to common names.
func (b *Builder) normalize(draft Draft) Draft {
	out := make(Draft, len(draft))
	for k, v := range draft {
		out[b.Terms.APITerm(k)] = v
	}
	return out
}

// flatten reduces a value to a scalar. Lists become a delimited string;
// objects have no scalar form and are dropped.
func flatten(v any) (any, bool) {
	switch x := v.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := scalarString(e)
			if !ok {
				return nil, false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, tagSeparator), true
	case []string:
		return strings.Join(x, tagSeparator), true
	case map[string]any:
		return nil, false
	default:
		return x, true
	}
}

// scalarString renders a JSON scalar for a delimited list.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
