package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/llm"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

func TestQueryInterpreterInterpret(t *testing.T) {
	ctx := context.Background()

	t.Run("translates query to criteria", func(t *testing.T) {
		client := llm.NewMockClient()
		client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
			return `{"filter": {"kind": "eq", "field": "industry", "value": "finance"}, "sort": null}`, nil
		}

		criteria := NewQueryInterpreter(client, zap.NewNop()).Interpret(ctx, "people in finance")
		require.NotNil(t, criteria.Filter)
		assert.Equal(t, models.PredicateEq, criteria.Filter.Kind)
		assert.Equal(t, "industry", criteria.Filter.Field)
		assert.Equal(t, "finance", criteria.Filter.Value)
	})

	t.Run("degrades to empty criteria on client error", func(t *testing.T) {
		client := llm.NewMockClient()
		client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
			return "", errors.New("timeout")
		}

		criteria := NewQueryInterpreter(client, zap.NewNop()).Interpret(ctx, "anyone from acme")
		assert.True(t, criteria.IsEmpty())
	})

	t.Run("degrades to empty criteria on garbage response", func(t *testing.T) {
		client := llm.NewMockClient()
		client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
			return "Sure! Here's what I found about your contacts...", nil
		}

		criteria := NewQueryInterpreter(client, zap.NewNop()).Interpret(ctx, "anyone from acme")
		assert.True(t, criteria.IsEmpty())
	})

	t.Run("drops sort on unknown field", func(t *testing.T) {
		client := llm.NewMockClient()
		client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
			return `{"filter": null, "sort": {"field": "favorite_color", "descending": false}}`, nil
		}

		criteria := NewQueryInterpreter(client, zap.NewNop()).Interpret(ctx, "sort by color")
		assert.Nil(t, criteria.Sort)
	})
}
