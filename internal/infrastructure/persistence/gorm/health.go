package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// HealthChecker pings the database behind a gorm handle
type HealthChecker struct {
	name string
	db   *gorm.DB
}

// NewHealthChecker creates a health checker reporting under name
func NewHealthChecker(name string, db *gorm.DB) *HealthChecker {
	return &HealthChecker{name: name, db: db}
}

// Name implements outbound.HealthChecker
func (h *HealthChecker) Name() string { return h.name }

// HealthCheck implements outbound.HealthChecker
func (h *HealthChecker) HealthCheck(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
