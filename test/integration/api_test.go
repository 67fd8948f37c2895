package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/application/criteria"
	"github.com/platewise/engine/internal/application/profile"
	"github.com/platewise/engine/internal/application/recommend"
	"github.com/platewise/engine/internal/application/search"
	"github.com/platewise/engine/internal/domain/food"
	domain "github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/internal/infrastructure/http/handlers"
	"github.com/platewise/engine/internal/infrastructure/http/middleware"
	"github.com/platewise/engine/internal/infrastructure/http/server"
	"github.com/platewise/engine/internal/infrastructure/monitoring"
	"github.com/platewise/engine/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

// APITestSuite drives the HTTP surface against mocked ports
type APITestSuite struct {
	suite.Suite
	completer *testutils.MockTextCompleter
	catalog   *testutils.MockCatalogRepository
	orders    *testutils.MockOrderHistoryRepository
	handler   http.Handler
}

func (s *APITestSuite) SetupTest() {
	logger := zaptest.NewLogger(s.T())
	cfg, err := config.Load("")
	s.Require().NoError(err)
	cfg.RateLimit.Enable = false

	s.completer = new(testutils.MockTextCompleter)
	s.catalog = new(testutils.MockCatalogRepository)
	s.orders = new(testutils.MockOrderHistoryRepository)

	metrics := monitoring.NewMetricsCollector(logger)
	extractorCfg := criteria.DefaultConfig()
	extractorCfg.MaxAttempts = 2
	extractor := criteria.NewExtractor(criteria.StaticConnector(s.completer), extractorCfg, logger)
	searchSvc := search.NewService(extractor, s.catalog, search.DefaultConfig(), logger)

	recCfg := recommend.DefaultConfig()
	profiler := profile.NewProfiler(s.orders, domain.DefaultThresholds(), logger)
	recSvc := recommend.NewService(profiler, recommend.NewDefaultAggregator(s.catalog, recCfg, time.Now), recCfg, logger)

	s.handler = server.NewServer(cfg, logger, metrics,
		handlers.NewSearchHandlers(searchSvc, logger),
		handlers.NewRecommendationHandlers(recSvc, logger),
	).Handler()
}

func (s *APITestSuite) TearDownTest() {
	s.completer.AssertExpectations(s.T())
	s.catalog.AssertExpectations(s.T())
	s.orders.AssertExpectations(s.T())
}

func (s *APITestSuite) do(method, path, body, userID string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *APITestSuite) TestSearch_CompilesCriteriaIntoCatalogQuery() {
	s.completer.On("Complete", mock.Anything, mock.Anything).
		Return(`Sure: {"protein":{"min":30},"company.name":"Green Kitchen"}`, nil).Once()

	bowl := testutils.NewFoodFactory(1).FoodItem()
	bowl.Restaurant = "Green Kitchen"
	bowl.Protein = 42
	s.catalog.On("Find", mock.Anything, mock.MatchedBy(func(q food.Query) bool {
		_, hasProtein := q.Predicate[food.NutrientField(food.Protein)]
		return hasProtein && q.Limit > 0
	})).Return([]food.FoodItem{bowl}, nil).Once()

	rec := s.do(http.MethodPost, "/api/v1/search", `{"query":"high protein from green kitchen"}`, "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			Items []food.PricedItem `json:"items"`
		} `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Data.Items, 1)
	s.Equal(food.DerivePrice(bowl.Calories), body.Data.Items[0].Price)
}

func (s *APITestSuite) TestSearch_CatalogFailureIsInternal() {
	s.completer.On("Complete", mock.Anything, mock.Anything).Return(`{"calories":{"max":500}}`, nil).Once()
	s.catalog.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	rec := s.do(http.MethodPost, "/api/v1/search", `{"query":"under 500 calories"}`, "")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	s.NotContains(rec.Body.String(), "connection reset")
}

func (s *APITestSuite) TestSearch_UpstreamFailureDegrades() {
	s.completer.On("Complete", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded).Once()

	rec := s.do(http.MethodPost, "/api/v1/search", `{"query":"something healthy"}`, "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), `"code":"NO_ACTIONABLE_CRITERIA"`)
}

func (s *APITestSuite) TestSearch_RetriesUnparseableResponse() {
	s.completer.On("Complete", mock.Anything, mock.Anything).Return("I am not sure", nil).Once()
	s.completer.On("Complete", mock.Anything, mock.Anything).Return(`{"calories":{"max":300}}`, nil).Once()
	s.catalog.On("Find", mock.Anything, mock.Anything).Return([]food.FoodItem{}, nil).Once()

	rec := s.do(http.MethodPost, "/api/v1/search", `{"query":"snack under 300"}`, "")
	s.Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Contains(rec.Body.String(), `"count":0`)
}

func (s *APITestSuite) TestRecommendations_OrderHistoryFailure() {
	userID := uuid.New()
	s.orders.On("FindByUser", mock.Anything, userID).Return(nil, errors.New("timeout")).Once()

	rec := s.do(http.MethodGet, "/api/v1/recommendations", "", userID.String())
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestAPI_AnonymousRecommendationsUsePopular(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	factory := testutils.NewFoodFactory(7)
	catalog := new(testutils.MockCatalogRepository)
	catalog.On("Find", mock.Anything, mock.Anything).Return(factory.Catalog(12), nil)
	orders := new(testutils.MockOrderHistoryRepository)

	recCfg := recommend.DefaultConfig()
	recSvc := recommend.NewService(profile.NewProfiler(orders, domain.DefaultThresholds(), logger),
		recommend.NewDefaultAggregator(catalog, recCfg, time.Now), recCfg, logger)
	handler := server.NewServer(cfg, logger, monitoring.NewMetricsCollector(logger),
		handlers.NewSearchHandlers(nil, logger),
		handlers.NewRecommendationHandlers(recSvc, logger),
	).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Recommendations []struct {
			Type string `json:"type"`
		} `json:"recommendations"`
		IsNewUser bool `json:"isNewUser"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.IsNewUser)
	assert.LessOrEqual(t, len(body.Recommendations), 5)
	for _, r := range body.Recommendations {
		assert.Equal(t, "popular", r.Type)
	}
	orders.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
}
