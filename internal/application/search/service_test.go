package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/application/criteria"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/ports/inbound"
	apperrors "github.com/platewise/engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

// MockExtractor is a mock implementation of Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, text string) (food.Constraint, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(food.Constraint), args.Error(1)
}

// MockTextCompleter is a mock implementation of outbound.TextCompleter
type MockTextCompleter struct {
	mock.Mock
}

func (m *MockTextCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type fakeCatalog struct {
	items   []food.FoodItem
	err     error
	queries []food.Query
}

func (c *fakeCatalog) Find(_ context.Context, q food.Query) ([]food.FoodItem, error) {
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}
	return q.Apply(c.items), nil
}

func (c *fakeCatalog) Count(context.Context) (int64, error) {
	return int64(len(c.items)), nil
}

func catalogItems() []food.FoodItem {
	return []food.FoodItem{
		{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Restaurant: "Green Kitchen", Item: "Grilled Chicken Bowl", Calories: 480, Protein: 42},
		{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Restaurant: "Green Kitchen", Item: "Turkey Wrap", Calories: 340, Protein: 28},
		{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), Restaurant: "Green Kitchen", Item: "Greek Yogurt Cup", Calories: 260, Protein: 18},
		{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000d"), Restaurant: "Burger Barn", Item: "Double Burger", Calories: 640, Protein: 26},
	}
}

func query(text string) json.RawMessage {
	raw, _ := json.Marshal(text)
	return raw
}

func constraintOf(n food.Nutrient, r food.Range) food.Constraint {
	c := food.NewConstraint()
	c.Set(n, r)
	return c
}

// SearchServiceTestSuite covers the search pipeline with a stubbed extractor
type SearchServiceTestSuite struct {
	suite.Suite
	extractor *MockExtractor
	catalog   *fakeCatalog
	service   *Service
	ctx       context.Context
}

func (s *SearchServiceTestSuite) SetupTest() {
	s.extractor = new(MockExtractor)
	s.catalog = &fakeCatalog{items: catalogItems()}
	s.service = NewService(s.extractor, s.catalog, DefaultConfig(), zaptest.NewLogger(s.T()))
	s.ctx = context.Background()
}

func (s *SearchServiceTestSuite) TestSearch_HighProteinBias() {
	// Arrange
	c := constraintOf(food.Protein, food.Range{Min: food.Bound(15)})
	c.Restaurant = "green"
	s.extractor.On("Extract", mock.Anything, "high protein lunch").Return(c, nil)

	// Act
	result, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: query("high protein lunch")})

	// Assert
	s.Require().NoError(err)
	s.Equal(3, result.Count)
	s.Require().Len(result.Items, 3)
	s.Equal("Grilled Chicken Bowl", result.Items[0].Item)
	s.Equal("Turkey Wrap", result.Items[1].Item)
	s.Equal("Greek Yogurt Cup", result.Items[2].Item)
	s.Equal(4.80, result.Items[0].Price)
	s.Equal(c, result.Criteria)
}

func (s *SearchServiceTestSuite) TestSearch_ProteinMinTwentyDropsLowerItems() {
	c := constraintOf(food.Protein, food.Range{Min: food.Bound(20)})
	c.Restaurant = "green"
	s.extractor.On("Extract", mock.Anything, "protein").Return(c, nil)

	result, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: query("protein")})

	s.Require().NoError(err)
	s.Require().Len(result.Items, 2)
	s.Equal("Grilled Chicken Bowl", result.Items[0].Item)
	s.Equal("Turkey Wrap", result.Items[1].Item)
}

func (s *SearchServiceTestSuite) TestSearch_NoMatchesIsSuccess() {
	s.extractor.On("Extract", mock.Anything, "over 1000 calories").
		Return(constraintOf(food.Calories, food.Range{Min: food.Bound(1000)}), nil)

	result, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: query("over 1000 calories")})

	s.Require().NoError(err)
	s.Equal(0, result.Count)
	s.NotNil(result.Items)
	s.Empty(result.Items)
}

func (s *SearchServiceTestSuite) TestSearch_PriceUsesCalorieProxy() {
	s.extractor.On("Extract", mock.Anything, "meals under $4").
		Return(constraintOf(food.Price, food.Range{Max: food.Bound(4)}), nil)

	result, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: query("meals under $4"), Sort: "price_desc"})

	s.Require().NoError(err)
	s.Equal([]string{"Turkey Wrap", "Greek Yogurt Cup"}, names(result.Items))
	s.Require().Len(s.catalog.queries, 1)
	lte := s.catalog.queries[0].Predicate[food.NutrientField(food.Calories)].LTE
	s.Require().NotNil(lte)
	s.Equal(400.0, *lte)
}

func (s *SearchServiceTestSuite) TestSearch_EmptyCriteria() {
	s.extractor.On("Extract", mock.Anything, "tell me a joke").Return(food.NewConstraint(), nil)

	result, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: query("tell me a joke")})

	s.Nil(result)
	s.True(apperrors.Is(err, apperrors.CodeNoActionableCriteria))
	s.Empty(s.catalog.queries)
}

func (s *SearchServiceTestSuite) TestSearch_InvalidQuery() {
	for name, raw := range map[string]json.RawMessage{
		"missing": nil,
		"number":  json.RawMessage(`42`),
		"blank":   json.RawMessage(`"  "`),
	} {
		s.Run(name, func() {
			_, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: raw})
			s.True(apperrors.Is(err, apperrors.CodeInvalidInput))
		})
	}
	s.extractor.AssertNotCalled(s.T(), "Extract", mock.Anything, mock.Anything)
}

func (s *SearchServiceTestSuite) TestSearch_UnsupportedSort() {
	_, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: query("burgers"), Sort: "tastiest"})

	s.True(apperrors.Is(err, apperrors.CodeValidationFailed))
}

func (s *SearchServiceTestSuite) TestSearch_LimitCapped() {
	s.extractor.On("Extract", mock.Anything, "anything").
		Return(constraintOf(food.Calories, food.Range{Min: food.Bound(1)}), nil)

	_, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: query("anything"), Limit: 5000})
	s.Require().NoError(err)
	_, err = s.service.Search(s.ctx, inbound.SearchRequest{Query: query("anything")})
	s.Require().NoError(err)

	s.Equal(100, s.catalog.queries[0].Limit)
	s.Equal(20, s.catalog.queries[1].Limit)
}

func (s *SearchServiceTestSuite) TestSearch_CatalogFailure() {
	s.catalog.err = errors.New("connection reset")
	s.extractor.On("Extract", mock.Anything, "burgers").
		Return(constraintOf(food.Calories, food.Range{Max: food.Bound(700)}), nil)

	_, err := s.service.Search(s.ctx, inbound.SearchRequest{Query: query("burgers")})

	s.True(apperrors.Is(err, apperrors.CodeInternal))
}

func (s *SearchServiceTestSuite) TestRecommendFromQuery() {
	s.extractor.On("Extract", mock.Anything, "something light").
		Return(constraintOf(food.Calories, food.Range{Max: food.Bound(500)}), nil)

	result, err := s.service.RecommendFromQuery(s.ctx, inbound.QueryRecommendationRequest{Query: query("something light"), Limit: 2})

	s.Require().NoError(err)
	s.Equal("Items matching calories <= 500", result.Summary)
	s.Equal([]string{"Greek Yogurt Cup", "Turkey Wrap"}, names(result.Items))
}

func (s *SearchServiceTestSuite) TestRecommendFromQuery_DefaultLimit() {
	s.extractor.On("Extract", mock.Anything, "food").
		Return(constraintOf(food.Calories, food.Range{Min: food.Bound(1)}), nil)

	_, err := s.service.RecommendFromQuery(s.ctx, inbound.QueryRecommendationRequest{Query: query("food"), Limit: 99})
	s.Require().NoError(err)

	s.Equal(20, s.catalog.queries[0].Limit)
}

func TestSearchServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SearchServiceTestSuite))
}

func TestSearch_ThroughExtractor(t *testing.T) {
	completer := new(MockTextCompleter)
	completer.On("Complete", mock.Anything, mock.AnythingOfType("string")).
		Return(`Sure! {"protein": {"min": 15}, "company.name": "Green"}`, nil).Once()
	extractor := criteria.NewExtractor(criteria.StaticConnector(completer),
		criteria.Config{MaxAttempts: 2}, zaptest.NewLogger(t))
	service := NewService(extractor, &fakeCatalog{items: catalogItems()}, DefaultConfig(), zaptest.NewLogger(t))

	result, err := service.Search(context.Background(), inbound.SearchRequest{Query: query("high protein from green kitchen")})

	require.NoError(t, err)
	assert.Equal(t, []string{"Grilled Chicken Bowl", "Turkey Wrap", "Greek Yogurt Cup"}, names(result.Items))
	completer.AssertExpectations(t)
}

func TestSearch_DegradedExtractionIsNoActionableCriteria(t *testing.T) {
	completer := new(MockTextCompleter)
	completer.On("Complete", mock.Anything, mock.AnythingOfType("string")).
		Return("", errors.New("upstream unavailable"))
	extractor := criteria.NewExtractor(criteria.StaticConnector(completer),
		criteria.Config{MaxAttempts: 2}, zaptest.NewLogger(t))
	service := NewService(extractor, &fakeCatalog{items: catalogItems()}, DefaultConfig(), zaptest.NewLogger(t))

	_, err := service.Search(context.Background(), inbound.SearchRequest{Query: query("burgers")})

	assert.True(t, apperrors.Is(err, apperrors.CodeNoActionableCriteria))
}

func TestInferSort(t *testing.T) {
	assert.Equal(t, sortOptions["protein_desc"], InferSort("High Protein breakfast"))
	assert.Equal(t, sortOptions["calories_asc"], InferSort("something cheap"))
	assert.Nil(t, InferSort("burgers"))
	assert.Equal(t, sortOptions["protein_asc"], InferSort("low protein snacks"))
	assert.Equal(t, sortOptions["protein_asc"], InferSort("Low-Protein dinner"))
}

func names(items []food.PricedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Item)
	}
	return out
}
