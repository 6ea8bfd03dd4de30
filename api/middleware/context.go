package middleware

import "context"

type principalKey struct{}

// Principal is the authenticated caller attached by Auth.
type Principal struct {
	UserID   string
	Role     string
	AccessID string
}

// PrincipalFromContext returns the caller and whether one was attached.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func UserIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

func RoleFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

// AccessIDFromContext returns the jti of the access token behind the request.
func AccessIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.AccessID
}

// WithUserID sets the user on the principal already in ctx, if any.
func WithUserID(ctx context.Context, userID string) context.Context {
	p, _ := PrincipalFromContext(ctx)
	p.UserID = userID
	return WithPrincipal(ctx, p)
}

// WithRole sets the role on the principal already in ctx, if any.
func WithRole(ctx context.Context, role string) context.Context {
	p, _ := PrincipalFromContext(ctx)
	p.Role = role
	return WithPrincipal(ctx, p)
}
