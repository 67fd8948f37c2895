package gorm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const monitorKey = "query_monitor:start"

// QueryStats holds aggregated query statistics
type QueryStats struct {
	TotalQueries     int64         `json:"total_queries"`
	SlowQueries      int64         `json:"slow_queries"`
	FailedQueries    int64         `json:"failed_queries"`
	AverageQueryTime time.Duration `json:"average_query_time"`
	TotalQueryTime   time.Duration `json:"total_query_time"`
}

// QueryMonitor tracks catalog and order query timings through GORM callbacks
// and logs the ones slower than the threshold.
type QueryMonitor struct {
	logger    *zap.Logger
	threshold time.Duration
	observe   func(table string, d time.Duration, err error)

	mu    sync.Mutex
	stats QueryStats
}

// NewQueryMonitor creates a new query monitor. A zero threshold defaults to 100ms.
func NewQueryMonitor(logger *zap.Logger, threshold time.Duration) *QueryMonitor {
	if threshold <= 0 {
		threshold = 100 * time.Millisecond
	}
	return &QueryMonitor{logger: logger.Named("query-monitor"), threshold: threshold}
}

// OnQuery registers a hook called after every query, e.g. a metrics histogram
func (qm *QueryMonitor) OnQuery(fn func(table string, d time.Duration, err error)) {
	qm.observe = fn
}

// Install registers the before/after query callbacks on db
func (qm *QueryMonitor) Install(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("monitor:before", qm.before); err != nil {
		return err
	}
	return db.Callback().Query().After("gorm:query").Register("monitor:after", qm.after)
}

func (qm *QueryMonitor) before(db *gorm.DB) {
	db.InstanceSet(monitorKey, time.Now())
}

func (qm *QueryMonitor) after(db *gorm.DB) {
	v, ok := db.InstanceGet(monitorKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	table := ""
	sql := ""
	if db.Statement != nil {
		table = db.Statement.Table
		sql = db.Statement.SQL.String()
	}
	qm.record(table, sql, time.Since(start), db.Error)
}

func (qm *QueryMonitor) record(table, sql string, d time.Duration, err error) {
	if err == gorm.ErrRecordNotFound {
		err = nil
	}

	qm.mu.Lock()
	qm.stats.TotalQueries++
	qm.stats.TotalQueryTime += d
	qm.stats.AverageQueryTime = qm.stats.TotalQueryTime / time.Duration(qm.stats.TotalQueries)
	if err != nil {
		qm.stats.FailedQueries++
	}
	slow := d > qm.threshold
	if slow {
		qm.stats.SlowQueries++
	}
	qm.mu.Unlock()

	if slow {
		qm.logger.Warn("Slow query detected",
			zap.String("table", table),
			zap.Duration("duration", d),
			zap.String("sql", sanitizeSQL(sql)),
			zap.Error(err),
		)
	}
	if qm.observe != nil {
		qm.observe(table, d, err)
	}
}

// Stats returns current query statistics
func (qm *QueryMonitor) Stats() QueryStats {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	return qm.stats
}

func sanitizeSQL(sql string) string {
	sanitized := strings.ReplaceAll(sql, "'", "?")
	if len(sanitized) > 500 {
		sanitized = sanitized[:500] + "..."
	}
	return sanitized
}

// LogWriter implements GORM's logger.Writer on top of zap
type LogWriter struct {
	Logger *zap.Logger
}

// Printf implements the Writer interface
func (w LogWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	switch {
	case strings.Contains(msg, "SLOW SQL"):
		w.Logger.Warn("GORM slow query", zap.String("message", msg))
	case strings.Contains(msg, "Error"), strings.Contains(msg, "ERROR"):
		w.Logger.Error("GORM error", zap.String("message", msg))
	default:
		w.Logger.Debug("GORM log", zap.String("message", msg))
	}
}
