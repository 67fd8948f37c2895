// Package middleware provides the gin middleware chain of the API server
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Context keys set by the chain
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
)

// UserIDHeader carries the caller identity, set by the upstream gateway
const UserIDHeader = "X-User-ID"

// Middleware provides all middleware functions
type Middleware struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	limiters *limiterStore
}

// New creates a new middleware instance
func New(cfg *config.Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		config:   cfg,
		logger:   logger.Named("http"),
		tracer:   otel.Tracer("github.com/platewise/engine/internal/infrastructure/http"),
		limiters: newLimiterStore(cfg.RateLimit),
	}
}

// Chain returns the middleware in the order the API server installs them
func (m *Middleware) Chain() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.RequestID(),
		m.Logger(),
		m.Compression(),
		m.Recovery(),
		m.Security(),
		m.CORS(),
		m.RateLimit(),
		m.Tracing(),
		m.UserIdentity(),
	}
}

// RequestID adds a unique request ID to the context
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// Logger provides structured logging for requests
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if userID := c.GetString(UserIDKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		switch {
		case statusCode >= 500:
			m.logger.Error("Server error", fields...)
		case statusCode >= 400:
			m.logger.Warn("Client error", fields...)
		default:
			m.logger.Info("Request completed", fields...)
		}
	}
}

// Recovery recovers from panics and returns a 500 envelope
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("Panic recovered",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
				)

				appErr := errors.NewInternalError("Internal server error")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success":    false,
					"error":      appErr.Message,
					"code":       appErr.Code,
					"request_id": c.GetString(RequestIDKey),
				})
			}
		}()

		c.Next()
	}
}

// Security adds security headers
func (m *Middleware) Security() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if m.config.IsProduction() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// CORS handles Cross-Origin Resource Sharing
func (m *Middleware) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.Server.EnableCORS {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		if origin != "" && m.isOriginAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, "+UserIDHeader)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimit applies a token bucket per client IP
func (m *Middleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.limiters.allow(c.ClientIP()) {
			appErr := errors.NewTooManyRequestsError()
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(appErr.StatusCode(), gin.H{
				"success": false,
				"error":   appErr.Message,
				"code":    appErr.Code,
			})
			return
		}

		c.Next()
	}
}

// Tracing starts a server span per request, continuing any incoming trace
func (m *Middleware) Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.Monitoring.EnableTracing {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := m.tracer.Start(ctx,
			fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", c.GetString(RequestIDKey)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
	}
}

// UserIdentity puts the caller id into the context: the gateway-provided
// X-User-ID header, or in jwt mode the subject of a verified bearer token.
// Absent or malformed ids are left for the handlers to treat as anonymous.
func (m *Middleware) UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch m.config.Auth.Mode {
		case "jwt":
			if id, ok := m.subjectFromToken(c.GetHeader("Authorization")); ok {
				c.Set(UserIDKey, id)
			}
		default:
			if id := c.GetHeader(UserIDHeader); id != "" {
				c.Set(UserIDKey, id)
			}
		}
		c.Next()
	}
}

// subjectFromToken verifies an HS256 bearer token and returns its subject
func (m *Middleware) subjectFromToken(header string) (string, bool) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", false
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Auth.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Auth.JWTIssuer))
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(m.config.Auth.JWTSecret), nil
	}, opts...)
	if err != nil {
		m.logger.Debug("Bearer token rejected", zap.Error(err))
		return "", false
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// Compression brotli-encodes response bodies for clients that accept br
func (m *Middleware) Compression() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.Server.Compression || !acceptsEncoding(c.GetHeader("Accept-Encoding"), "br") {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer}
		c.Writer = bw
		defer func() {
			if err := bw.Close(); err != nil {
				m.logger.Debug("Failed to flush compressed response", zap.Error(err))
			}
		}()

		c.Next()
	}
}

// UpdateRateLimit swaps the rate limit settings; existing client buckets are dropped
func (m *Middleware) UpdateRateLimit(cfg config.RateLimitConfig) {
	m.limiters.reset(cfg)
	m.logger.Info("Rate limit updated",
		zap.Bool("enabled", cfg.Enable),
		zap.Int("requests_per_min", cfg.RequestsPerMin),
		zap.Int("burst", cfg.BurstSize),
	)
}

func acceptsEncoding(header, encoding string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), encoding) {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// brotliWriter starts compressing on the first body write so empty responses
// such as 204 stay unencoded
type brotliWriter struct {
	gin.ResponseWriter
	writer *brotli.Writer
}

func (w *brotliWriter) Write(b []byte) (int, error) {
	if w.writer == nil {
		h := w.ResponseWriter.Header()
		h.Set("Content-Encoding", "br")
		h.Del("Content-Length")
		w.writer = brotli.NewWriterLevel(w.ResponseWriter, brotli.DefaultCompression)
	}
	return w.writer.Write(b)
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *brotliWriter) Close() error {
	if w.writer == nil {
		return nil
	}
	return w.writer.Close()
}

// isOriginAllowed checks if origin is in allowed list
func (m *Middleware) isOriginAllowed(origin string) bool {
	if m.config.IsDevelopment() {
		return true
	}

	for _, allowed := range m.config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// limiterStore keeps one limiter per client and forgets idle ones
type limiterStore struct {
	mu       sync.Mutex
	enabled  bool
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	limiters map[string]*clientLimiter
	sweptAt  time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	s := &limiterStore{now: time.Now}
	s.reset(cfg)
	return s
}

func (s *limiterStore) reset(cfg config.RateLimitConfig) {
	perMin := cfg.RequestsPerMin
	if perMin <= 0 {
		perMin = 60
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	ttl := cfg.CleanupInterval
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = cfg.Enable
	s.limit = rate.Limit(float64(perMin) / 60)
	s.burst = burst
	s.ttl = ttl
	s.limiters = make(map[string]*clientLimiter)
}

// allow takes one token for key; always true while disabled
func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	enabled := s.enabled
	s.mu.Unlock()
	if !enabled {
		return true
	}
	return s.get(key).Allow()
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.sweptAt) > s.ttl {
		for k, l := range s.limiters {
			if now.Sub(l.lastSeen) > s.ttl {
				delete(s.limiters, k)
			}
		}
		s.sweptAt = now
	}

	l, ok := s.limiters[key]
	if !ok {
		l = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = l
	}
	l.lastSeen = now
	return l.limiter
}
