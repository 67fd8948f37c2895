package recommend

import (
	"context"
	"time"

	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/ports/inbound"
	"github.com/platewise/engine/internal/ports/outbound"
	apperrors "github.com/platewise/engine/pkg/errors"
	"go.uber.org/zap"
)

// ProfileSource resolves a raw user identifier to a profile, or nil for
// cold-start users.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*profile.UserProfile, error)
}

// Observer receives served recommendations, e.g. for metrics.
type Observer interface {
	ObserveRecommendations(recs []recommendation.Recommendation, coldStart bool)
}

type nopObserver struct{}

func (nopObserver) ObserveRecommendations([]recommendation.Recommendation, bool) {}

// Service implements inbound.RecommendationService
type Service struct {
	profiles   ProfileSource
	aggregator *Aggregator
	popular    Strategy
	byType     map[recommendation.Type]Strategy
	config     Config
	now        func() time.Time
	observer   Observer
	logger     *zap.Logger
}

var _ inbound.RecommendationService = (*Service)(nil)

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithClock overrides the request clock
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver registers a recommendation observer
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewService wires the aggregator. The aggregator must contain a popular
// strategy, which doubles as the cold-start path.
func NewService(profiles ProfileSource, aggregator *Aggregator, config Config, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		profiles:   profiles,
		aggregator: aggregator,
		byType:     make(map[recommendation.Type]Strategy),
		config:     config.withDefaults(),
		now:        time.Now,
		observer:   nopObserver{},
		logger:     logger.Named("recommendation-service"),
	}
	for _, st := range aggregator.Strategies() {
		s.byType[st.Type()] = st
		if st.Type() == recommendation.Popular {
			s.popular = st
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPersonalized returns the merged list. Users without a profile get
// popular items only and never a profile, even when one is requested.
func (s *Service) GetPersonalized(ctx context.Context, userID string, opts inbound.PersonalizedOptions) (*recommendation.Personalized, error) {
	limit := s.config.NormalizeLimit(opts.Limit)

	p, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	strategyOpts := Options{Limit: limit, Now: s.now()}

	if p == nil {
		recs, err := s.coldStart(ctx, strategyOpts)
		if err != nil {
			return nil, err
		}
		s.observer.ObserveRecommendations(recs, true)
		return &recommendation.Personalized{
			Success:         true,
			IsNewUser:       true,
			Recommendations: recs,
		}, nil
	}

	recs, err := s.aggregator.Aggregate(ctx, p, strategyOpts)
	if err != nil {
		s.logger.Error("Failed to aggregate recommendations",
			zap.String("user_id", p.UserID.String()),
			zap.Error(err),
		)
		return nil, apperrors.NewFatalError("generate recommendations", err)
	}
	s.observer.ObserveRecommendations(recs, false)

	result := &recommendation.Personalized{
		Success:         true,
		IsNewUser:       false,
		Recommendations: recs,
	}
	if opts.IncludeProfile {
		result.UserProfile = p
	}
	return result, nil
}

// Generate runs one strategy for the user.
func (s *Service) Generate(ctx context.Context, userID string, t recommendation.Type, opts inbound.StrategyOptions) ([]recommendation.Recommendation, error) {
	strategy, ok := s.byType[t]
	if !ok {
		return nil, apperrors.NewValidationError("unknown recommendation strategy: " + string(t))
	}

	p, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	recs, err := strategy.Generate(ctx, p, Options{
		Limit:    s.config.NormalizeLimit(opts.Limit),
		MealType: opts.MealType,
		Now:      s.now(),
	})
	if err != nil {
		s.logger.Error("Strategy failed", zap.String("strategy", string(t)), zap.Error(err))
		return nil, apperrors.NewFatalError("generate recommendations", err)
	}
	s.observer.ObserveRecommendations(recs, p == nil)
	return recs, nil
}

// Profile exposes the derived profile, or nil for cold-start users.
func (s *Service) Profile(ctx context.Context, userID string) (*profile.UserProfile, error) {
	return s.profiles.Profile(ctx, userID)
}

func (s *Service) coldStart(ctx context.Context, opts Options) ([]recommendation.Recommendation, error) {
	if s.popular == nil {
		return []recommendation.Recommendation{}, nil
	}
	recs, err := s.popular.Generate(ctx, nil, opts)
	if err != nil {
		s.logger.Error("Cold-start recommendations failed", zap.Error(err))
		return nil, apperrors.NewFatalError("generate recommendations", err)
	}
	return recs, nil
}

// NewDefaultAggregator builds the six production strategies over one catalog.
func NewDefaultAggregator(catalog outbound.CatalogRepository, config Config, now func() time.Time) *Aggregator {
	popular := NewPopularStrategy(catalog, config)
	return NewAggregator(
		NewFrequentStrategy(catalog),
		NewSimilarStrategy(catalog, popular, config),
		NewTimeBasedStrategy(catalog, config, now),
		NewHealthyAltStrategy(catalog, config),
		NewExploreStrategy(catalog, config),
		popular,
	)
}
