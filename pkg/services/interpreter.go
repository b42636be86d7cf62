package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/llm"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

// QueryInterpreter translates a natural-language search query into
// structured criteria. Interpretation is best-effort: any failure degrades
// to empty criteria (match everything) rather than failing the search.
type QueryInterpreter interface {
	Interpret(ctx context.Context, query string) models.SearchCriteria
}

// llmQueryInterpreter implements QueryInterpreter using an LLM client.
type llmQueryInterpreter struct {
	client llm.Client
	logger *zap.Logger
}

// NewQueryInterpreter creates an LLM-backed query interpreter.
func NewQueryInterpreter(client llm.Client, logger *zap.Logger) QueryInterpreter {
	return &llmQueryInterpreter{
		client: client,
		logger: logger.Named("interpreter"),
	}
}

const interpreterSystemMessage = `You translate natural-language queries over a personal contact list into a JSON filter tree. Respond with JSON only, no prose.`

func interpreterPrompt(query string) string {
	return fmt.Sprintf(`Translate this search query into filter criteria for a contact list.

Query: %q

Respond with a JSON object of this shape:
{
  "filter": <predicate or null>,
  "sort": {"field": "...", "descending": true} or null
}

A predicate is one of:
  {"kind": "and", "children": [<predicates>]}
  {"kind": "or", "children": [<predicates>]}
  {"kind": "eq", "field": "...", "value": "..."}
  {"kind": "contains", "field": "...", "value": "..."}
  {"kind": "gte", "field": "created_at", "value": "<RFC 3339 timestamp>"}
  {"kind": "lte", "field": "created_at", "value": "<RFC 3339 timestamp>"}

Valid fields: name, email, company, title, industry, created_at.
Industry values: technology, finance, healthcare, education, retail, manufacturing, legal, marketing, real_estate, consulting, other.
Use "contains" for fuzzy text matching and "eq" for exact values like industry.
If the query does not translate to any filter, return {"filter": null, "sort": null}.`,
		query)
}

// Interpret translates the query, falling back to empty criteria on any
// failure. A degraded search is logged but never surfaced to the caller.
func (i *llmQueryInterpreter) Interpret(ctx context.Context, query string) models.SearchCriteria {
	response, err := i.client.GenerateResponse(ctx, interpreterPrompt(query), interpreterSystemMessage, 0.0)
	if err != nil {
		i.logger.Warn("query interpretation failed, returning unfiltered results",
			zap.String("query", query),
			zap.Error(err))
		return models.SearchCriteria{}
	}

	criteria, err := llm.ParseJSONResponse[models.SearchCriteria](response)
	if err != nil {
		i.logger.Warn("query interpretation returned unparseable criteria, returning unfiltered results",
			zap.String("query", query),
			zap.Error(err))
		return models.SearchCriteria{}
	}

	if criteria.Sort != nil && !models.IsSearchableField(criteria.Sort.Field) {
		criteria.Sort = nil
	}

	return criteria
}
