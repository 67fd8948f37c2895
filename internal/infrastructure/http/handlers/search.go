package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/platewise/engine/internal/ports/inbound"
	"github.com/platewise/engine/pkg/errors"
	"go.uber.org/zap"
)

// SearchHandlers serves the free-text search endpoints
type SearchHandlers struct {
	service inbound.SearchService
	logger  *zap.Logger
}

// NewSearchHandlers creates search handlers
func NewSearchHandlers(service inbound.SearchService, logger *zap.Logger) *SearchHandlers {
	return &SearchHandlers{
		service: service,
		logger:  logger.Named("search-handlers"),
	}
}

// RegisterRoutes mounts the search routes on an /api/v1 group
func (h *SearchHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/search", h.Search)
	rg.POST("/recommendations/query", h.RecommendFromQuery)
}

type searchBody struct {
	Query json.RawMessage `json:"query"`
	Sort  string          `json:"sort" validate:"omitempty,max=32"`
	Limit int             `json:"limit" validate:"min=0"`
}

type queryRecommendationBody struct {
	Query json.RawMessage `json:"query"`
	Limit int             `json:"limit" validate:"min=0"`
}

// Search handles POST /search
func (h *SearchHandlers) Search(c *gin.Context) {
	var body searchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, h.logger, errors.NewInvalidInputError("request body must be a JSON object"))
		return
	}
	if err := validateStruct(body); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.service.Search(c.Request.Context(), inbound.SearchRequest{
		Query: body.Query,
		Sort:  body.Sort,
		Limit: body.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// RecommendFromQuery handles POST /recommendations/query
func (h *SearchHandlers) RecommendFromQuery(c *gin.Context) {
	var body queryRecommendationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, h.logger, errors.NewInvalidInputError("request body must be a JSON object"))
		return
	}
	if err := validateStruct(body); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.service.RecommendFromQuery(c.Request.Context(), inbound.QueryRecommendationRequest{
		Query: body.Query,
		Limit: body.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
