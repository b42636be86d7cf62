package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

func TestTranslatePredicate(t *testing.T) {
	t.Run("eq on text field", func(t *testing.T) {
		args := []any{"user-1"}
		frag := translatePredicate(&models.Predicate{
			Kind: models.PredicateEq, Field: "industry", Value: "finance",
		}, &args)

		assert.Equal(t, "LOWER(industry) = LOWER($2)", frag)
		require.Len(t, args, 2)
		assert.Equal(t, "finance", args[1])
	})

	t.Run("contains wraps value in wildcards", func(t *testing.T) {
		args := []any{"user-1"}
		frag := translatePredicate(&models.Predicate{
			Kind: models.PredicateContains, Field: "company", Value: "acme",
		}, &args)

		assert.Equal(t, "company ILIKE $2", frag)
		assert.Equal(t, "%acme%", args[1])
	})

	t.Run("range operators only apply to created_at", func(t *testing.T) {
		args := []any{"user-1"}
		frag := translatePredicate(&models.Predicate{
			Kind: models.PredicateGte, Field: "created_at", Value: "2026-01-01T00:00:00Z",
		}, &args)
		assert.Equal(t, "created_at >= $2::timestamptz", frag)

		args = []any{"user-1"}
		frag = translatePredicate(&models.Predicate{
			Kind: models.PredicateGte, Field: "name", Value: "x",
		}, &args)
		assert.Empty(t, frag)
		assert.Len(t, args, 1, "dropped nodes must not bind values")
	})

	t.Run("eq on created_at is dropped", func(t *testing.T) {
		args := []any{"user-1"}
		frag := translatePredicate(&models.Predicate{
			Kind: models.PredicateEq, Field: "created_at", Value: "2026-01-01",
		}, &args)
		assert.Empty(t, frag)
	})

	t.Run("unknown kind and unknown field are dropped", func(t *testing.T) {
		args := []any{"user-1"}
		assert.Empty(t, translatePredicate(&models.Predicate{Kind: "regex", Field: "name", Value: "x"}, &args))
		assert.Empty(t, translatePredicate(&models.Predicate{Kind: models.PredicateEq, Field: "phone", Value: "x"}, &args))
		assert.Len(t, args, 1)
	})

	t.Run("and joins children, dropping untranslatable ones", func(t *testing.T) {
		args := []any{"user-1"}
		frag := translatePredicate(&models.Predicate{
			Kind: models.PredicateAnd,
			Children: []models.Predicate{
				{Kind: models.PredicateEq, Field: "industry", Value: "finance"},
				{Kind: "regex", Field: "name", Value: "x"},
				{Kind: models.PredicateContains, Field: "name", Value: "jane"},
			},
		}, &args)

		assert.Equal(t, "(LOWER(industry) = LOWER($2) AND name ILIKE $3)", frag)
		require.Len(t, args, 3)
	})

	t.Run("or with only untranslatable children collapses to nothing", func(t *testing.T) {
		args := []any{"user-1"}
		frag := translatePredicate(&models.Predicate{
			Kind: models.PredicateOr,
			Children: []models.Predicate{
				{Kind: "regex", Field: "name", Value: "x"},
				{Kind: models.PredicateEq, Field: "unknown_field", Value: "y"},
			},
		}, &args)
		assert.Empty(t, frag)
		assert.Len(t, args, 1)
	})

	t.Run("nested boolean tree", func(t *testing.T) {
		args := []any{"user-1"}
		frag := translatePredicate(&models.Predicate{
			Kind: models.PredicateOr,
			Children: []models.Predicate{
				{Kind: models.PredicateAnd, Children: []models.Predicate{
					{Kind: models.PredicateEq, Field: "industry", Value: "technology"},
					{Kind: models.PredicateContains, Field: "title", Value: "engineer"},
				}},
				{Kind: models.PredicateEq, Field: "company", Value: "acme"},
			},
		}, &args)

		assert.Equal(t,
			"((LOWER(industry) = LOWER($2) AND title ILIKE $3) OR LOWER(company) = LOWER($4))",
			frag)
	})
}
