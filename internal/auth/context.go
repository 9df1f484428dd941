package auth

import (
	"context"
	"strings"
)

// UserContext holds the authenticated user
type UserContext struct {
	Username      string
	DisplayName   string
	Email         string
	DataScientist bool
	// System is set for requests authenticated with the admin API key
	System bool
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// UsernameFromContext returns the logged-in username or ""
func UsernameFromContext(ctx context.Context) string {
	if user, ok := FromContext(ctx); ok {
		return user.Username
	}
	return ""
}

// CanViewAnalysis reports whether the user may open the Data Analysis View
func (u *UserContext) CanViewAnalysis() bool {
	return u != nil && (u.DataScientist || u.System)
}

// Initials returns initials from the display name (e.g., "Ada Lovelace" -> "AL")
func (u *UserContext) Initials() string {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		b.WriteString(strings.ToUpper(part[:1]))
	}
	return b.String()
}
