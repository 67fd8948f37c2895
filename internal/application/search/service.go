// Package search answers free-text food queries against the catalog.
package search

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/platewise/engine/internal/application/criteria"
	"github.com/platewise/engine/internal/application/filter"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/ports/inbound"
	"github.com/platewise/engine/internal/ports/outbound"
	apperrors "github.com/platewise/engine/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/platewise/engine/internal/application/search")

// Extractor turns query text into a Constraint.
type Extractor interface {
	Extract(ctx context.Context, text string) (food.Constraint, error)
}

// Config holds result limits
type Config struct {
	DefaultLimit          int `mapstructure:"default_limit"`
	MaxLimit              int `mapstructure:"max_limit"`
	RecommendDefaultLimit int `mapstructure:"recommend_default_limit"`
	RecommendMaxLimit     int `mapstructure:"recommend_max_limit"`
}

// DefaultConfig returns production limits
func DefaultConfig() Config {
	return Config{
		DefaultLimit:          20,
		MaxLimit:              100,
		RecommendDefaultLimit: 8,
		RecommendMaxLimit:     20,
	}
}

// Service implements inbound.SearchService
type Service struct {
	extractor Extractor
	catalog   outbound.CatalogRepository
	config    Config
	logger    *zap.Logger
}

var _ inbound.SearchService = (*Service)(nil)

// NewService creates a new search service
func NewService(extractor Extractor, catalog outbound.CatalogRepository, config Config, logger *zap.Logger) *Service {
	d := DefaultConfig()
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = d.DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = d.MaxLimit
	}
	if config.RecommendDefaultLimit <= 0 {
		config.RecommendDefaultLimit = d.RecommendDefaultLimit
	}
	if config.RecommendMaxLimit <= 0 {
		config.RecommendMaxLimit = d.RecommendMaxLimit
	}
	return &Service{
		extractor: extractor,
		catalog:   catalog,
		config:    config,
		logger:    logger.Named("search-service"),
	}
}

// Search extracts criteria from the query and returns matching catalog items.
func (s *Service) Search(ctx context.Context, req inbound.SearchRequest) (*inbound.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()

	bias, err := ParseSort(req.Sort)
	if err != nil {
		return nil, err
	}

	text, constraint, err := s.extractCriteria(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	if bias == nil {
		bias = InferSort(text)
	}

	items, err := s.find(ctx, constraint, bias, clampLimit(req.Limit, s.config.DefaultLimit, s.config.MaxLimit))
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("search.results", len(items)))
	return &inbound.SearchResult{
		Criteria: constraint,
		Items:    items,
		Count:    len(items),
	}, nil
}

// RecommendFromQuery runs the search pipeline with recommendation limits and
// a readable summary of the criteria used.
func (s *Service) RecommendFromQuery(ctx context.Context, req inbound.QueryRecommendationRequest) (*inbound.QueryRecommendationResult, error) {
	ctx, span := tracer.Start(ctx, "search.RecommendFromQuery")
	defer span.End()

	text, constraint, err := s.extractCriteria(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(req.Limit, s.config.RecommendDefaultLimit, s.config.RecommendMaxLimit)
	items, err := s.find(ctx, constraint, InferSort(text), limit)
	if err != nil {
		return nil, err
	}

	return &inbound.QueryRecommendationResult{
		Criteria: constraint,
		Summary:  "Items matching " + constraint.Summary(),
		Items:    items,
	}, nil
}

func (s *Service) extractCriteria(ctx context.Context, raw json.RawMessage) (string, food.Constraint, error) {
	text, err := criteria.ParseQuery(raw)
	if err != nil {
		return "", food.Constraint{}, err
	}

	constraint, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return "", food.Constraint{}, err
	}
	if constraint.IsEmpty() {
		s.logger.Debug("No actionable criteria", zap.String("query", text))
		return "", food.Constraint{}, apperrors.NewNoActionableCriteriaError()
	}
	return text, constraint, nil
}

func (s *Service) find(ctx context.Context, c food.Constraint, bias []food.SortKey, limit int) ([]food.PricedItem, error) {
	items, err := s.catalog.Find(ctx, food.Query{
		Predicate: filter.Compile(c),
		Sort:      bias,
		Limit:     limit,
	})
	if err != nil {
		s.logger.Error("Catalog query failed", zap.String("criteria", c.Summary()), zap.Error(err))
		return nil, apperrors.NewFatalError("query catalog", err)
	}
	return food.WithPrices(items), nil
}

func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// sortOptions maps the accepted sort names to catalog sort keys. Price sorts
// on calories since price is derived from them.
var sortOptions = map[string][]food.SortKey{
	"protein_desc":  {{Field: food.Protein, Desc: true}, {Field: food.Calories}},
	"protein_asc":   {{Field: food.Protein}},
	"calories_asc":  {{Field: food.Calories}},
	"calories_desc": {{Field: food.Calories, Desc: true}},
	"price_asc":     {{Field: food.Calories}},
	"price_desc":    {{Field: food.Calories, Desc: true}},
}

// ParseSort validates an explicit sort name. Blank means none.
func ParseSort(name string) ([]food.SortKey, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	keys, ok := sortOptions[name]
	if !ok {
		return nil, apperrors.NewValidationError("unsupported sort: " + name)
	}
	return keys, nil
}

var (
	lowProteinHints = []string{"low protein", "low-protein"}
	proteinHints    = []string{"high protein", "high-protein", "protein"}
	lightHints      = []string{"low calorie", "low-calorie", "low cal", "light", "cheap", "budget"}
)

// InferSort guesses the sort the user wants from the query text.
func InferSort(text string) []food.SortKey {
	lower := strings.ToLower(text)
	for _, h := range lowProteinHints {
		if strings.Contains(lower, h) {
			return sortOptions["protein_asc"]
		}
	}
	for _, h := range proteinHints {
		if strings.Contains(lower, h) {
			return sortOptions["protein_desc"]
		}
	}
	for _, h := range lightHints {
		if strings.Contains(lower, h) {
			return sortOptions["calories_asc"]
		}
	}
	return nil
}
