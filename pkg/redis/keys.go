package redis

import "strings"

// DefaultNamespace prefixes every key the platform writes.
const DefaultNamespace = "tb"

const (
	idempotencyPrefix   = "idempotency"
	rateLimitPrefix     = "rate_limit"
	sessionPrefix       = "session"
	lockPrefix          = "lock"
	passwordResetPrefix = "password_reset"
)

// Keyspace builds colon-separated keys under one namespace.
type Keyspace struct {
	namespace string
}

func NewKeyspace(namespace string) Keyspace {
	return Keyspace{namespace: strings.Trim(strings.TrimSpace(namespace), ":")}
}

func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join(idempotencyPrefix, scope, id)
}

func (k Keyspace) RateLimitKey(scope string) string {
	return k.join(rateLimitPrefix, scope)
}

func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.join(sessionPrefix, "access", accessID)
}

func (k Keyspace) LockKey(name string) string {
	return k.join(lockPrefix, name)
}

// PasswordResetKey holds the user id for a reset token digest.
func (k Keyspace) PasswordResetKey(digest string) string {
	return k.join(passwordResetPrefix, digest)
}

func (k Keyspace) join(parts ...string) string {
	ns := k.namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
