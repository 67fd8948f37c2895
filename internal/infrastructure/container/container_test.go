package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/internal/infrastructure/http/server"
	gormRepo "github.com/platewise/engine/internal/infrastructure/persistence/gorm"
	"github.com/platewise/engine/internal/infrastructure/persistence/sqlite"
	"github.com/platewise/engine/internal/ports/outbound"
	"github.com/platewise/engine/pkg/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModule_Validates(t *testing.T) {
	require.NoError(t, fx.ValidateApp(New(""), fx.NopLogger))
}

func TestModule_ServesSearchOverSQLite(t *testing.T) {
	t.Setenv("PLATEWISE_DATABASE_PATH", "file:container_test?mode=memory&cache=shared")

	var (
		api     *server.Server
		health  *healthcheck.HealthCheck
		catalog *gormRepo.CatalogRepository
		orders  outbound.OrderHistoryRepository
	)
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(ConfigPath("")),
		ConfigModule,
		LoggerModule,
		MonitoringModule,
		DatabaseModule,
		CacheModule,
		RepositoryModule,
		AIModule,
		ServiceModule,
		HTTPModule,
		fx.Populate(&api, &health, &catalog, &orders),
	)
	app.RequireStart()
	defer app.RequireStop()

	ctx := context.Background()
	require.NoError(t, sqlite.SeedDatabase(ctx, catalog, orders))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"low calorie from green kitchen"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Green Kitchen")
	assert.NotContains(t, rec.Body.String(), "Burger Barn")

	report := health.Check(ctx)
	assert.Equal(t, healthcheck.StatusHealthy, report.Status)
	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"sqlite", "ai:local"}, names)
}

func TestRecommendConfig(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	out, err := RecommendConfig(cfg.Recommendation)

	require.NoError(t, err)
	assert.Equal(t, 8, out.DefaultLimit)
	assert.Equal(t, 450.0, out.MealWindows[domain.Dinner].MinCalories)
	assert.Equal(t, 1000.0, out.MealWindows[domain.Dinner].MaxCalories)
	assert.Len(t, out.MealWindows, 4)
}

func TestRecommendConfig_UnknownMealWindow(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Recommendation.MealWindows["brunch"] = config.WindowConfig{MinCalories: 1, MaxCalories: 2}

	_, err = RecommendConfig(cfg.Recommendation)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "brunch")
}
