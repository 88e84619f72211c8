// Package query turns cached API responses into filtered, sorted entities.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gi8lino/tasklens/internal/cache"
	"github.com/gi8lino/tasklens/internal/classify"
	"github.com/gi8lino/tasklens/internal/connector"
	"github.com/gi8lino/tasklens/internal/entity"
)

// meToken is the filter value that resolves to the configured user.
const meToken = "me"

// errAPIResponse aborts a cache producer so error responses never reach disk.
var errAPIResponse = errors.New("api returned an error response")

// Cacher memoizes a producer's result under key.
type Cacher interface {
	Cache(key string, produce cache.Producer) (any, error)
}

// Filters narrows a listing. Zero values disable a filter; all set filters must match.
type Filters struct {
	Text     string // case-insensitive substring of the filter field (last name for people); "me" on people
	Assignee string // items only: "@me" or a substring of the assignee name
}

// Service runs the cache -> classify -> map -> filter -> sort pipeline.
type Service struct {
	Cache     Cacher
	Connector connector.Connector
	Mapper    entity.Mapper
	Logger    *slog.Logger
}

// List returns the entities of kind stored under key. An API error response
// yields an empty result; only cache and transport failures are errors.
func (s *Service) List(ctx context.Context, kind entity.Kind, key string, f Filters) ([]entity.Entity, error) {
	payload, err := s.Cache.Cache(key, func() (any, error) {
		v, err := s.Connector.FetchCollection(ctx, kind)
		if err != nil {
			return nil, err
		}
		if classify.IsErrorObject(v) {
			return nil, fmt.Errorf("%w: %s", errAPIResponse, classify.Classify(v).Message())
		}
		return v, nil
	})
	if err != nil {
		if errors.Is(err, errAPIResponse) {
			s.logger().Warn("listing failed upstream", "kind", kind, "error", err)
			return []entity.Entity{}, nil
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	resp := classify.Classify(payload)
	if resp.Kind != classify.KindList {
		s.logger().Warn("ignoring non-list payload", "kind", kind, "key", key, "shape", resp.Kind, "reason", resp.Message())
		return []entity.Entity{}, nil
	}

	out := make([]entity.Entity, 0, len(resp.List))
	for _, elem := range resp.List {
		raw, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		e, err := s.Mapper.ToEntity(kind, raw)
		if err != nil {
			return nil, err
		}
		if it, ok := e.(*entity.Item); ok && it.Orphaned() {
			s.logger().Debug("dropping orphaned item", "number", it.Number)
			continue
		}
		if s.matches(e, f) {
			out = append(out, e)
		}
	}

	if kind == entity.KindPeople {
		sortPeople(out)
	}
	return out, nil
}

// Get fetches one resource live. ok is false when the API answered with an error.
func (s *Service) Get(ctx context.Context, kind entity.Kind, id int) (e entity.Entity, ok bool, err error) {
	v, err := s.Connector.FetchByID(ctx, kind, id)
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s %d: %w", kind, id, err)
	}

	resp := classify.Classify(v)
	if resp.Kind != classify.KindObject {
		s.logger().Debug("resource unavailable", "kind", kind, "id", id, "shape", resp.Kind, "reason", resp.Message())
		return nil, false, nil
	}

	e, err = s.Mapper.ToEntity(kind, resp.Object)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// matches applies every set filter to e.
func (s *Service) matches(e entity.Entity, f Filters) bool {
	if f.Text != "" && !s.matchText(e, f.Text) {
		return false
	}
	if f.Assignee != "" {
		it, ok := e.(*entity.Item)
		if !ok || !s.matchAssignee(it, f.Assignee) {
			return false
		}
	}
	return true
}

// matchText matches the filter field; "me" on a person selects the configured user.
func (s *Service) matchText(e entity.Entity, text string) bool {
	if p, ok := e.(*entity.Person); ok && strings.EqualFold(strings.TrimSpace(text), meToken) {
		me := s.me()
		return me != "" && strings.EqualFold(p.Email, me)
	}
	return containsFold(e.FilterField(), text)
}

// matchAssignee resolves "@me" to the configured user and otherwise matches
// the assignee name by substring.
func (s *Service) matchAssignee(it *entity.Item, token string) bool {
	token = strings.TrimSpace(token)
	name, marked := strings.CutPrefix(token, "@")
	if marked && strings.EqualFold(name, meToken) {
		return it.AssignedTo(s.me())
	}
	if it.Assignee == nil || name == "" {
		return false
	}
	return containsFold(it.Assignee.Name, name)
}

// me returns the configured user's email, "" when none is configured.
func (s *Service) me() string {
	if s.Connector == nil {
		return ""
	}
	return strings.TrimSpace(s.Connector.Config().Email)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// sortPeople orders people by last name, then first name.
func sortPeople(list []entity.Entity) {
	slices.SortStableFunc(list, func(a, b entity.Entity) int {
		pa, _ := a.(*entity.Person)
		pb, _ := b.(*entity.Person)
		if pa == nil || pb == nil {
			return 0
		}
		if c := strings.Compare(pa.LastName, pb.LastName); c != 0 {
			return c
		}
		return strings.Compare(pa.FirstName, pb.FirstName)
	})
}

// containsFold reports whether substr is within s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
