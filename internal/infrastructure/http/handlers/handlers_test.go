package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/infrastructure/http/middleware"
	"github.com/platewise/engine/internal/ports/inbound"
	apperrors "github.com/platewise/engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, req inbound.SearchRequest) (*inbound.SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.SearchResult), args.Error(1)
}

func (m *MockSearchService) RecommendFromQuery(ctx context.Context, req inbound.QueryRecommendationRequest) (*inbound.QueryRecommendationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.QueryRecommendationResult), args.Error(1)
}

type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) GetPersonalized(ctx context.Context, userID string, opts inbound.PersonalizedOptions) (*recommendation.Personalized, error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recommendation.Personalized), args.Error(1)
}

func (m *MockRecommendationService) Generate(ctx context.Context, userID string, t recommendation.Type, opts inbound.StrategyOptions) ([]recommendation.Recommendation, error) {
	args := m.Called(ctx, userID, t, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]recommendation.Recommendation), args.Error(1)
}

func (m *MockRecommendationService) Profile(ctx context.Context, userID string) (*profile.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.UserProfile), args.Error(1)
}

func setupRouter(t *testing.T, search inbound.SearchService, recs inbound.RecommendationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader(middleware.UserIDHeader); id != "" {
			c.Set(middleware.UserIDKey, id)
		}
		c.Next()
	})
	v1 := r.Group("/api/v1")
	NewSearchHandlers(search, zaptest.NewLogger(t)).RegisterRoutes(v1)
	NewRecommendationHandlers(recs, zaptest.NewLogger(t)).RegisterRoutes(v1)
	return r
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSearch_Success(t *testing.T) {
	search := new(MockSearchService)
	r := setupRouter(t, search, new(MockRecommendationService))

	constraint := food.NewConstraint()
	constraint.Set(food.Protein, food.Range{Min: food.Bound(20)})
	search.On("Search", mock.Anything, inbound.SearchRequest{
		Query: json.RawMessage(`"high protein"`),
		Sort:  "calories_asc",
		Limit: 5,
	}).Return(&inbound.SearchResult{Criteria: constraint, Items: []food.PricedItem{}, Count: 0}, nil)

	rec := do(r, http.MethodPost, "/api/v1/search", `{"query":"high protein","sort":"calories_asc","limit":5}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["count"])
	assert.Contains(t, data["criteria"], "protein")
	search.AssertExpectations(t)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"malformed body", `{"query":`, nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"negative limit", `{"query":"x","limit":-1}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"non-string query", `{"query":42}`, apperrors.NewInvalidInputError("query must be a string"), http.StatusBadRequest, "INVALID_INPUT"},
		{"nothing actionable", `{"query":"tell me a joke"}`, apperrors.NewNoActionableCriteriaError(), http.StatusBadRequest, "NO_ACTIONABLE_CRITERIA"},
		{"catalog failure", `{"query":"burgers"}`, apperrors.NewFatalError("query catalog", errors.New("db down")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unexpected error", `{"query":"burgers"}`, errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := new(MockSearchService)
			if tt.serviceErr != nil {
				search.On("Search", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}
			r := setupRouter(t, search, new(MockRecommendationService))

			rec := do(r, http.MethodPost, "/api/v1/search", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotContains(t, rec.Body.String(), "db down")
			search.AssertExpectations(t)
		})
	}
}

func TestRecommendFromQuery(t *testing.T) {
	search := new(MockSearchService)
	r := setupRouter(t, search, new(MockRecommendationService))

	search.On("RecommendFromQuery", mock.Anything, inbound.QueryRecommendationRequest{
		Query: json.RawMessage(`"low calorie"`),
	}).Return(&inbound.QueryRecommendationResult{
		Criteria: food.NewConstraint(),
		Summary:  "Items matching calories at most 500",
		Items:    []food.PricedItem{},
	}, nil)

	rec := do(r, http.MethodPost, "/api/v1/recommendations/query", `{"query":"low calorie"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "Items matching calories at most 500", data["summary"])
}

func TestPersonalized(t *testing.T) {
	recs := new(MockRecommendationService)
	r := setupRouter(t, new(MockSearchService), recs)
	userID := "3b1f8f0e-2c4a-4c1e-9a77-5d2f3c9e8a01"

	recs.On("GetPersonalized", mock.Anything, userID, inbound.PersonalizedOptions{Limit: 5, IncludeProfile: true}).
		Return(&recommendation.Personalized{
			Success:         true,
			IsNewUser:       false,
			Recommendations: []recommendation.Recommendation{},
			UserProfile:     &profile.UserProfile{},
		}, nil)

	rec := do(r, http.MethodGet, "/api/v1/recommendations?limit=5&includeProfile=true", "", middleware.UserIDHeader, userID)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["isNewUser"])
	assert.Contains(t, body, "userProfile")
	recs.AssertExpectations(t)
}

func TestPersonalized_BadParams(t *testing.T) {
	r := setupRouter(t, new(MockSearchService), new(MockRecommendationService))

	for _, path := range []string{
		"/api/v1/recommendations?limit=abc",
		"/api/v1/recommendations?limit=-3",
		"/api/v1/recommendations?limit=1000",
		"/api/v1/recommendations?includeProfile=maybe",
	} {
		rec := do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "VALIDATION_FAILED", decode(t, rec)["code"], path)
	}
}

func TestStrategy(t *testing.T) {
	recs := new(MockRecommendationService)
	r := setupRouter(t, new(MockSearchService), recs)
	lunch := profile.Lunch

	recs.On("Generate", mock.Anything, "", recommendation.TimeBased, inbound.StrategyOptions{Limit: 3, MealType: &lunch}).
		Return([]recommendation.Recommendation{{Type: recommendation.TimeBased, Reason: "Good for lunch", Confidence: 70}}, nil)

	rec := do(r, http.MethodGet, "/api/v1/recommendations/time-based?limit=3&mealType=lunch", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "time-based", data["type"])
	assert.Equal(t, float64(1), data["count"])
	recs.AssertExpectations(t)
}

func TestStrategy_ValidationErrors(t *testing.T) {
	r := setupRouter(t, new(MockSearchService), new(MockRecommendationService))

	for _, path := range []string{
		"/api/v1/recommendations/trending",
		"/api/v1/recommendations/frequent?mealType=brunch",
		"/api/v1/recommendations/popular?limit=x",
	} {
		rec := do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "VALIDATION_FAILED", decode(t, rec)["code"], path)
	}
}

func TestStrategy_Failure(t *testing.T) {
	recs := new(MockRecommendationService)
	r := setupRouter(t, new(MockSearchService), recs)
	recs.On("Generate", mock.Anything, "", recommendation.Popular, inbound.StrategyOptions{}).
		Return(nil, apperrors.NewFatalError("generate recommendations", errors.New("catalog offline")))

	rec := do(r, http.MethodGet, "/api/v1/recommendations/popular", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec)["code"])
}

func TestProfile(t *testing.T) {
	t.Run("new user", func(t *testing.T) {
		recs := new(MockRecommendationService)
		r := setupRouter(t, new(MockSearchService), recs)
		recs.On("Profile", mock.Anything, "").Return(nil, nil)

		rec := do(r, http.MethodGet, "/api/v1/recommendations/profile", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"data":null,"isNewUser":true}`, rec.Body.String())
	})

	t.Run("known user", func(t *testing.T) {
		recs := new(MockRecommendationService)
		r := setupRouter(t, new(MockSearchService), recs)
		recs.On("Profile", mock.Anything, "u-1").Return(&profile.UserProfile{TotalOrders: 4}, nil)

		rec := do(r, http.MethodGet, "/api/v1/recommendations/profile", "", middleware.UserIDHeader, "u-1")

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["isNewUser"])
		assert.NotNil(t, body["data"])
	})
}
