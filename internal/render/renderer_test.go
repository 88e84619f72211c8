package render_test

import (
	"strings"
	"testing"

	"github.com/gi8lino/tasklens/internal/entity"
	"github.com/gi8lino/tasklens/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer(t *testing.T) {
	t.Parallel()

	t.Run("default item template", func(t *testing.T) {
		t.Parallel()
		r, err := render.New("")
		require.NoError(t, err)

		it := &entity.Item{
			Number:   111,
			Variant:  entity.VariantBug,
			Title:    "Crash",
			Tags:     []string{"a", "b"},
			Assignee: &entity.Assignee{Name: "Anna"},
		}
		var b strings.Builder
		require.NoError(t, r.List(&b, entity.KindItems, []entity.Entity{it}))
		assert.Equal(t, "#111\tbug\tCrash\t@Anna\t[a,b]\n", b.String())
	})

	t.Run("default people template", func(t *testing.T) {
		t.Parallel()
		r, err := render.New("")
		require.NoError(t, err)

		var b strings.Builder
		require.NoError(t, r.One(&b, &entity.Person{ID: 3, FirstName: "Anna", LastName: "Rayner"}))
		assert.Equal(t, "3\tRayner, Anna\t-\n", b.String())
	})

	t.Run("custom format", func(t *testing.T) {
		t.Parallel()
		r, err := render.New(`{{range .}}{{.DisplayName | upper}};{{end}}`)
		require.NoError(t, err)

		var b strings.Builder
		list := []entity.Entity{&entity.Product{Name: "Zeta"}, &entity.Product{Name: "Alpha"}}
		require.NoError(t, r.List(&b, entity.KindProducts, list))
		assert.Equal(t, "ZETA;ALPHA;", b.String())
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Parallel()
		_, err := render.New(`{{range}`)
		require.Error(t, err)
	})

	t.Run("payload as JSON", func(t *testing.T) {
		t.Parallel()
		r, err := render.New("")
		require.NoError(t, err)

		var b strings.Builder
		require.NoError(t, r.Payload(&b, map[string]any{"number": 1, "score": "M"}))
		assert.JSONEq(t, `{"number":1,"score":"M"}`, b.String())
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		r, err := render.New("")
		require.NoError(t, err)
		assert.ErrorIs(t, r.List(&strings.Builder{}, entity.Kind("boards"), nil), entity.ErrUnknownKind)
	})
}
