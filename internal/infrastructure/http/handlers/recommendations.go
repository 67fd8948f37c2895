package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/infrastructure/http/middleware"
	"github.com/platewise/engine/internal/ports/inbound"
	"github.com/platewise/engine/pkg/errors"
	"go.uber.org/zap"
)

// RecommendationHandlers serves the personalized recommendation endpoints
type RecommendationHandlers struct {
	service inbound.RecommendationService
	logger  *zap.Logger
}

// NewRecommendationHandlers creates recommendation handlers
func NewRecommendationHandlers(service inbound.RecommendationService, logger *zap.Logger) *RecommendationHandlers {
	return &RecommendationHandlers{
		service: service,
		logger:  logger.Named("recommendation-handlers"),
	}
}

// RegisterRoutes mounts the recommendation routes on an /api/v1 group
func (h *RecommendationHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recommendations", h.Personalized)
	rg.GET("/recommendations/profile", h.Profile)
	rg.GET("/recommendations/:strategy", h.Strategy)
}

// profileResponse keeps isNewUser beside the envelope fields
type profileResponse struct {
	Success   bool                 `json:"success"`
	Data      *profile.UserProfile `json:"data"`
	IsNewUser bool                 `json:"isNewUser"`
}

// Personalized handles GET /recommendations
func (h *RecommendationHandlers) Personalized(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	includeProfile := false
	if raw := c.Query("includeProfile"); raw != "" {
		includeProfile, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.logger, errors.NewValidationError("includeProfile must be a boolean"))
			return
		}
	}

	result, err := h.service.GetPersonalized(c.Request.Context(), userID(c), inbound.PersonalizedOptions{
		Limit:          limit,
		IncludeProfile: includeProfile,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Strategy handles GET /recommendations/:strategy
func (h *RecommendationHandlers) Strategy(c *gin.Context) {
	strategy, err := recommendation.ParseType(c.Param("strategy"))
	if err != nil {
		respondError(c, h.logger, errors.NewValidationError(err.Error()))
		return
	}
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	opts := inbound.StrategyOptions{Limit: limit}
	if raw := c.Query("mealType"); raw != "" {
		mealType, err := profile.ParseMealType(raw)
		if err != nil {
			respondError(c, h.logger, errors.NewValidationError(err.Error()))
			return
		}
		opts.MealType = &mealType
	}

	recs, err := h.service.Generate(c.Request.Context(), userID(c), strategy, opts)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"type":            strategy,
		"recommendations": recs,
		"count":           len(recs),
	})
}

// Profile handles GET /recommendations/profile
func (h *RecommendationHandlers) Profile(c *gin.Context) {
	p, err := h.service.Profile(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{
		Success:   true,
		Data:      p,
		IsNewUser: p == nil,
	})
}

type limitParam struct {
	Limit int `validate:"min=0,max=100"`
}

// parseLimit reads ?limit=. Absent means zero, which services replace with
// their default.
func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError("limit must be an integer")
	}
	if err := validateStruct(limitParam{Limit: n}); err != nil {
		return 0, err
	}
	return n, nil
}

func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}
