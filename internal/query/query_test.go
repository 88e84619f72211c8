package query_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gi8lino/tasklens/internal/cache"
	"github.com/gi8lino/tasklens/internal/connector"
	"github.com/gi8lino/tasklens/internal/entity"
	"github.com/gi8lino/tasklens/internal/query"
	"github.com/gi8lino/tasklens/internal/terms"
	"github.com/gi8lino/tasklens/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConnector serves canned decoded payloads.
type fakeConnector struct {
	collections map[entity.Kind]any
	resources   map[int]any
	identity    connector.Identity
	err         error
	fetches     int
}

func (f *fakeConnector) FetchCollection(_ context.Context, kind entity.Kind) (any, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.collections[kind], nil
}

func (f *fakeConnector) FetchByID(_ context.Context, _ entity.Kind, id int) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.resources[id]; ok {
		return v, nil
	}
	return map[string]any{"status": json.Number("404"), "message": "not found"}, nil
}

func (f *fakeConnector) Create(context.Context, entity.Kind, map[string]any) (any, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConnector) UpdateItem(context.Context, int, map[string]any) (any, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConnector) Config() connector.Identity { return f.identity }

const peopleJSON = `[
  {"id": 1, "first_name": "Walter", "last_name": "White", "email": "walter@example.com"},
  {"id": 2, "first_name": "Murray", "last_name": "Wroblewski", "email": "murray@example.com"},
  {"id": 3, "first_name": "Anna", "last_name": "Rayner", "email": "test1@example.com"}
]`

const itemsJSON = `[
  {"number": 111, "type": "task", "title": "Write docs", "product": {"id": 1},
   "assignee": {"name": "Anna Rayner", "email": "test1@example.com"}},
  {"number": 222, "type": "bug", "title": "Fix login", "product": {"id": 1},
   "assignee": {"name": "Walter White", "email": "walter@example.com"}},
  {"number": 333, "type": "story", "title": "Write tests", "product": {"id": 2}},
  {"number": 444, "type": "epic", "title": "Release", "product": 2,
   "assignee": {"name": "Anna Rayner", "email": "test1@example.com"}},
  {"number": 666, "type": "task", "title": "Write orphan", "product": null,
   "assignee": {"name": "Anna Rayner", "email": "test1@example.com"}}
]`

const productsJSON = `[
  {"id": 2, "name": "Zeta"},
  {"id": 1, "name": "Alice Wonderland"}
]`

func newService(t *testing.T, conn *fakeConnector) (*query.Service, string) {
	t.Helper()
	dir := t.TempDir()
	testutils.MustWriteFile(t, filepath.Join(dir, "people.json"), peopleJSON)
	testutils.MustWriteFile(t, filepath.Join(dir, "items.json"), itemsJSON)
	testutils.MustWriteFile(t, filepath.Join(dir, "products.json"), productsJSON)
	return &query.Service{
		Cache:     cache.NewDiskCache(dir, nil),
		Connector: conn,
	}, dir
}

func lastNames(list []entity.Entity) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.(*entity.Person).LastName)
	}
	return out
}

func numbers(list []entity.Entity) []int {
	out := make([]int, 0, len(list))
	for _, e := range list {
		out = append(out, e.(*entity.Item).Number)
	}
	return out
}

func TestServiceList(t *testing.T) {
	t.Parallel()

	me := connector.Identity{Email: "test1@example.com"}

	t.Run("people sorted by last name", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindPeople, "people.json", query.Filters{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Rayner", "White", "Wroblewski"}, lastNames(got))
	})

	t.Run("people text filter matches last names only", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindPeople, "people.json", query.Filters{Text: "ray"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Rayner"}, lastNames(got))
	})

	t.Run("bare me on people returns the configured user", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindPeople, "people.json", query.Filters{Text: "me"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Rayner"}, lastNames(got))
	})

	t.Run("me without configured user matches nothing", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{})

		got, err := svc.List(t.Context(), entity.KindPeople, "people.json", query.Filters{Text: "me"})
		require.NoError(t, err)
		assert.Empty(t, got)

		items, err := svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{Assignee: "@me"})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("orphaned items are always excluded", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{})
		require.NoError(t, err)
		assert.Equal(t, []int{111, 222, 333, 444}, numbers(got))

		got, err = svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{Text: "write"})
		require.NoError(t, err)
		assert.Equal(t, []int{111, 333}, numbers(got))
	})

	t.Run("assignee @me resolves to configured email", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{Assignee: "@me"})
		require.NoError(t, err)
		assert.Equal(t, []int{111, 444}, numbers(got))
	})

	t.Run("assignee name substring with and without marker", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{Assignee: "@walter"})
		require.NoError(t, err)
		assert.Equal(t, []int{222}, numbers(got))

		got, err = svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{Assignee: "White"})
		require.NoError(t, err)
		assert.Equal(t, []int{222}, numbers(got))
	})

	t.Run("filters are AND-combined", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{Text: "docs", Assignee: "@me"})
		require.NoError(t, err)
		assert.Equal(t, []int{111}, numbers(got))

		got, err = svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{Text: "fix", Assignee: "@me"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unmatched token yields empty result", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{Assignee: "@nobody"})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("products keep cache order", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})

		got, err := svc.List(t.Context(), entity.KindProducts, "products.json", query.Filters{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Zeta", got[0].DisplayName())

		got, err = svc.List(t.Context(), entity.KindProducts, "products.json", query.Filters{Text: "alice"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Alice Wonderland", got[0].DisplayName())
	})

	t.Run("item terms leave product names alone", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, &fakeConnector{identity: me})
		svc.Mapper = entity.Mapper{Terms: terms.New(map[string]string{"title": "name"})}

		got, err := svc.List(t.Context(), entity.KindProducts, "products.json", query.Filters{Text: "alice"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Alice Wonderland", got[0].(*entity.Product).Name)
	})

	t.Run("miss fetches once through the connector", func(t *testing.T) {
		t.Parallel()
		conn := &fakeConnector{
			identity: me,
			collections: map[entity.Kind]any{
				entity.KindProducts: []any{map[string]any{"id": json.Number("9"), "name": "Fresh"}},
			},
		}
		svc := &query.Service{Cache: cache.NewDiskCache(t.TempDir(), nil), Connector: conn}

		for range 2 {
			got, err := svc.List(t.Context(), entity.KindProducts, "products.json", query.Filters{})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "Fresh", got[0].DisplayName())
		}
		assert.Equal(t, 1, conn.fetches)
	})

	t.Run("transport failure is returned", func(t *testing.T) {
		t.Parallel()
		svc := &query.Service{
			Cache:     cache.NewDiskCache(t.TempDir(), nil),
			Connector: &fakeConnector{err: errors.New("connection refused")},
		}

		_, err := svc.List(t.Context(), entity.KindItems, "items.json", query.Filters{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestServiceListAPIError(t *testing.T) {
	t.Parallel()

	apiErr := map[string]any{"status": json.Number("500"), "message": "internal"}

	for _, kind := range entity.Kinds {
		t.Run(string(kind)+" live error yields empty list and is not cached", func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			conn := &fakeConnector{collections: map[entity.Kind]any{kind: apiErr}}
			svc := &query.Service{Cache: cache.NewDiskCache(dir, nil), Connector: conn}

			got, err := svc.List(t.Context(), kind, kind.CacheKey(), query.Filters{})
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.NoFileExists(t, filepath.Join(dir, kind.CacheKey()))
		})

		t.Run(string(kind)+" cached error yields empty list", func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			testutils.MustWriteFile(t, filepath.Join(dir, kind.CacheKey()), `{"error":"Unauthorized","status":401}`)
			svc := &query.Service{Cache: cache.NewDiskCache(dir, nil), Connector: &fakeConnector{}}

			got, err := svc.List(t.Context(), kind, kind.CacheKey(), query.Filters{Text: "x"})
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestServiceGet(t *testing.T) {
	t.Parallel()

	conn := &fakeConnector{
		resources: map[int]any{
			111: map[string]any{"number": json.Number("111"), "type": "bug", "title": "Crash", "product": json.Number("1")},
			7:   map[string]any{"id": json.Number("7"), "first_name": "Anna", "last_name": "Rayner"},
		},
	}
	svc := &query.Service{Cache: cache.NewDiskCache(t.TempDir(), nil), Connector: conn}

	t.Run("typed item", func(t *testing.T) {
		t.Parallel()
		e, ok, err := svc.Get(t.Context(), entity.KindItems, 111)
		require.NoError(t, err)
		require.True(t, ok)
		it := e.(*entity.Item)
		assert.Equal(t, entity.VariantBug, it.Variant)
		assert.Equal(t, "Crash", it.Title)
	})

	t.Run("person", func(t *testing.T) {
		t.Parallel()
		e, ok, err := svc.Get(t.Context(), entity.KindPeople, 7)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Anna Rayner", e.DisplayName())
	})

	for _, kind := range entity.Kinds {
		t.Run(string(kind)+" error object is absent", func(t *testing.T) {
			t.Parallel()
			e, ok, err := svc.Get(t.Context(), kind, 404)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, e)
		})
	}

	t.Run("transport failure is returned", func(t *testing.T) {
		t.Parallel()
		failing := &query.Service{Connector: &fakeConnector{err: errors.New("timeout")}}
		_, ok, err := failing.Get(t.Context(), entity.KindItems, 1)
		require.Error(t, err)
		assert.False(t, ok)
	})
}
