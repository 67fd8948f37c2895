// Package profile derives a UserProfile from a user's order history.
package profile

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/order"
	domain "github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/ports/outbound"
	apperrors "github.com/platewise/engine/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/platewise/engine/internal/application/profile")

// Profiler recomputes profiles on demand. Nothing is persisted.
type Profiler struct {
	orders     outbound.OrderHistoryRepository
	thresholds domain.Thresholds
	logger     *zap.Logger
}

// NewProfiler creates a new profiler
func NewProfiler(orders outbound.OrderHistoryRepository, thresholds domain.Thresholds, logger *zap.Logger) *Profiler {
	return &Profiler{
		orders:     orders,
		thresholds: thresholds,
		logger:     logger.Named("profiler"),
	}
}

// Profile parses the raw identifier and builds the profile. A missing or
// malformed identifier, or a user without orders, yields a nil profile and a
// nil error.
func (p *Profiler) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	id, ok := ParseUserID(userID)
	if !ok {
		return nil, nil
	}
	return p.ProfileByID(ctx, id)
}

// ProfileByID builds the profile for a known identifier.
func (p *Profiler) ProfileByID(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "profile.Build")
	defer span.End()

	snapshots, err := p.orders.FindByUser(ctx, userID)
	if err != nil {
		p.logger.Error("Failed to load order history", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, apperrors.NewFatalError("load order history", err)
	}

	span.SetAttributes(attribute.Int("profile.orders", len(snapshots)))
	return Build(userID, snapshots, p.thresholds), nil
}

// ParseUserID accepts a UUID string. Blank and malformed values are rejected.
func ParseUserID(raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

type tally struct {
	name       string
	restaurant string
	count      int
	calories   float64
	protein    float64
	firstSeen  int
}

// Build aggregates snapshots into a profile. Line items are weighted by
// quantity. It returns nil when there is nothing to aggregate.
func Build(userID uuid.UUID, snapshots []order.Snapshot, thresholds domain.Thresholds) *domain.UserProfile {
	if len(snapshots) == 0 {
		return nil
	}

	// Tie-breaks depend on visit order, so fix it regardless of store order.
	snapshots = append([]order.Snapshot(nil), snapshots...)
	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].PlacedAt.Equal(snapshots[j].PlacedAt) {
			return snapshots[i].PlacedAt.Before(snapshots[j].PlacedAt)
		}
		return snapshots[i].ID.String() < snapshots[j].ID.String()
	})

	restaurants := make(map[string]*tally)
	items := make(map[string]*tally)
	mealTypes := make(map[domain.MealType]int, len(domain.MealTypes))

	var (
		totalItems                      int
		sumCalories, sumProtein, sumFat float64
		sumPrice                        float64
		seen                            int
	)
	lastOrderAt := snapshots[0].PlacedAt

	for _, s := range snapshots {
		mealTypes[domain.MealTypeAt(s.PlacedAt)]++
		if s.PlacedAt.After(lastOrderAt) {
			lastOrderAt = s.PlacedAt
		}

		for _, line := range s.Lines {
			units := line.Units()
			w := float64(units)
			totalItems += units

			sumCalories += line.Calories * w
			sumProtein += line.Protein * w
			sumFat += line.TotalFat * w
			price := line.Price
			if price <= 0 {
				price = food.DerivePrice(line.Calories)
			}
			sumPrice += price * w

			rKey := strings.ToLower(line.Restaurant)
			if _, ok := restaurants[rKey]; !ok {
				restaurants[rKey] = &tally{name: line.Restaurant, firstSeen: seen}
			}
			restaurants[rKey].count += units

			iKey := rKey + "\x00" + strings.ToLower(line.Item)
			if _, ok := items[iKey]; !ok {
				items[iKey] = &tally{
					name:       line.Item,
					restaurant: line.Restaurant,
					calories:   line.Calories,
					protein:    line.Protein,
					firstSeen:  seen,
				}
			}
			items[iKey].count += units
			seen++
		}
	}

	if totalItems == 0 {
		return nil
	}

	n := float64(totalItems)
	p := &domain.UserProfile{
		UserID:              userID,
		TotalOrders:         len(snapshots),
		TotalItems:          totalItems,
		FavoriteRestaurants: rank(restaurants),
		FavoriteItems:       rank(items),
		AvgCalories:         round2(sumCalories / n),
		AvgProtein:          round2(sumProtein / n),
		AvgFat:              round2(sumFat / n),
		AvgPrice:            round2(sumPrice / n),
		MealTypes:           mealTypes,
		LastOrderAt:         lastOrderAt,
	}
	p.DietaryPreference = thresholds.Classify(p.AvgCalories, p.AvgProtein, p.AvgFat)
	return p
}

// rank orders tallies by count descending, breaking ties by first
// appearance so the result is stable for a fixed history.
func rank(tallies map[string]*tally) []domain.Frequency {
	list := make([]*tally, 0, len(tallies))
	for _, t := range tallies {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].firstSeen < list[j].firstSeen
	})

	out := make([]domain.Frequency, 0, len(list))
	for _, t := range list {
		out = append(out, domain.Frequency{
			Name:       t.name,
			Restaurant: t.restaurant,
			Count:      t.count,
			Calories:   t.calories,
			Protein:    t.protein,
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
