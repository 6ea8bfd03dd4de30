package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

const maxRateLimitBodyBytes = 64 << 10

// RateLimiter counts hits in a fixed window per scope.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitDimension derives one throttled identity from a request.
type RateLimitDimension struct {
	name      string
	limit     int
	needsBody bool
	keyOf     func(r *http.Request, body []byte) string
}

// ByClientIP throttles on the caller address.
func ByClientIP(limit int) RateLimitDimension {
	return RateLimitDimension{
		name:  "ip",
		limit: limit,
		keyOf: func(r *http.Request, _ []byte) string { return clientIP(r) },
	}
}

// ByEmail throttles on the hashed "email" field of a JSON body.
func ByEmail(limit int) RateLimitDimension {
	return RateLimitDimension{
		name:      "email",
		limit:     limit,
		needsBody: true,
		keyOf: func(_ *http.Request, body []byte) string {
			email := normalizeEmail(extractEmail(body))
			if email == "" {
				return ""
			}
			return hashValue(email)
		},
	}
}

// ByUser throttles on the authenticated user. It must run after Auth.
func ByUser(limit int) RateLimitDimension {
	return RateLimitDimension{
		name:  "user",
		limit: limit,
		keyOf: func(r *http.Request, _ []byte) string { return UserIDFromContext(r.Context()) },
	}
}

// RateLimitPolicy groups the dimensions enforced on one route family.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	dimensions []RateLimitDimension
}

// NewRateLimitPolicy builds a policy. Dimensions with a non-positive limit are dropped.
func NewRateLimitPolicy(name string, window time.Duration, dimensions ...RateLimitDimension) RateLimitPolicy {
	policy := RateLimitPolicy{name: strings.ToLower(strings.TrimSpace(name)), window: window}
	if policy.name == "" {
		policy.name = "default"
	}
	for _, dim := range dimensions {
		if dim.limit > 0 {
			policy.dimensions = append(policy.dimensions, dim)
		}
	}
	return policy
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.dimensions) > 0
}

func (p RateLimitPolicy) needsBody() bool {
	for _, dim := range p.dimensions {
		if dim.needsBody {
			return true
		}
	}
	return false
}

// RateLimit rejects requests once any dimension of the policy exceeds its
// limit inside the window. Limiter failures surface as 503.
func RateLimit(policy RateLimitPolicy, store RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.needsBody() && r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxRateLimitBodyBytes))
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, dim := range policy.dimensions {
				key := dim.keyOf(r, body)
				if key == "" {
					continue
				}
				scope := policy.name + ":" + dim.name + ":" + key
				allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(dim.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectRateLimited(ctx, logg, w, policy, dim, key, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, dim RateLimitDimension, key string, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"dimension":      dim.name,
			"key":            key,
			"attempts":       count,
			"limit":          dim.limit,
			"window_seconds": int(policy.window.Seconds()),
		}), "rate limit exceeded")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
