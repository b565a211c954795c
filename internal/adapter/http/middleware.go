package http

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/girrex/suivi/internal/domain"
	"github.com/girrex/suivi/internal/logger"
	apperror "github.com/girrex/suivi/pkg/error"
)

const CorrelationIDHeader = "X-Correlation-ID"

type actorKey struct{}

// WithActor stores the authenticated actor in ctx
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated actor, or the zero actor
func ActorFrom(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey{}).(domain.Actor)
	return actor
}

// TokenValidator turns a bearer token into an actor
type TokenValidator interface {
	Validate(token string) (domain.Actor, error)
}

// RoleSource supplies the roles an agent currently holds in the directory
type RoleSource interface {
	RolesOf(ctx context.Context, agentID string) ([]domain.RoleAssignment, error)
}

// Limiter decides whether one more request for key is allowed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// correlationMiddleware ensures every request and response carries a correlation ID
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, cid)
		next.ServeHTTP(w, r.WithContext(logger.WithCorrelationID(r.Context(), cid)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade go through the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func loggingMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.LogPerformance(r.Context(), log, "http_request", time.Since(start), map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"agent_id": ActorFrom(r.Context()).AgentID,
			})
		})
	}
}

func recoveryMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(r.Context(), "panic recovered", fmt.Errorf("%v", rec), map[string]interface{}{
						"method": r.Method,
						"path":   r.URL.Path,
					})
					writeAppError(w, apperror.ErrInternalServer)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowedOrigins []string) bool {
	for _, o := range allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed("*", allowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" && originAllowed(origin, allowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+CorrelationIDHeader)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware authenticates requests with a bearer token
type AuthMiddleware struct {
	tokens TokenValidator
	roles  RoleSource
	log    logger.Logger
}

// NewAuthMiddleware creates the middleware. roles may be nil, in which case only the
// roles carried by the token are used.
func NewAuthMiddleware(tokens TokenValidator, roles RoleSource, log logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, roles: roles, log: log}
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	// browsers cannot set headers on websocket upgrades
	return r.URL.Query().Get("token")
}

// RequireAuth rejects requests without a valid token and stores the actor in the context
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAppError(w, apperror.NewUnauthorized("Authorization header required"))
			return
		}

		actor, err := m.tokens.Validate(token)
		if err != nil {
			writeAppError(w, apperror.NewUnauthorized("Invalid or expired token"))
			return
		}

		if m.roles != nil {
			assignments, err := m.roles.RolesOf(r.Context(), actor.AgentID)
			if err != nil {
				m.log.Warn(r.Context(), "failed to load directory roles", map[string]interface{}{
					"agent_id": actor.AgentID,
					"error":    err.Error(),
				})
			}
			for _, a := range assignments {
				if !actor.HasRole(a.Role) {
					actor.Roles = append(actor.Roles, a.Role)
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RateLimitMiddleware limits requests per agent, or per client IP before authentication
type RateLimitMiddleware struct {
	limiter Limiter
	log     logger.Logger
}

func NewRateLimitMiddleware(limiter Limiter, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, log: log}
}

func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := "ip:" + clientIP(r)
		if agentID := ActorFrom(r.Context()).AgentID; agentID != "" {
			key = "agent:" + agentID
		}

		allowed, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			// continue with request on error
			m.log.Error(r.Context(), "failed to check rate limit", err, map[string]interface{}{"key": key})
		}

		if !allowed {
			m.log.Warn(r.Context(), "rate limit exceeded", map[string]interface{}{
				"key":  key,
				"path": r.URL.Path,
			})
			w.Header().Set("Retry-After", "60")
			writeAppError(w, apperror.ErrTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts client IP from request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
