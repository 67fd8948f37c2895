package inbound

import (
	"context"

	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
)

// RecommendationService defines the personalized recommendation use cases.
// UserID is the raw identifier from the caller; an empty or malformed value
// is treated as an anonymous, cold-start user.
type RecommendationService interface {
	GetPersonalized(ctx context.Context, userID string, opts PersonalizedOptions) (*recommendation.Personalized, error)
	Generate(ctx context.Context, userID string, strategy recommendation.Type, opts StrategyOptions) ([]recommendation.Recommendation, error)
	Profile(ctx context.Context, userID string) (*profile.UserProfile, error)
}

// PersonalizedOptions for the merged recommendation list
type PersonalizedOptions struct {
	Limit          int
	IncludeProfile bool
}

// StrategyOptions for a single strategy call
type StrategyOptions struct {
	Limit    int
	MealType *profile.MealType
}
