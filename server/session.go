package server

import (
	"context"
	"net/http"
	"strings"
)

const (
	// SessionHeader carries the debug customer id.
	SessionHeader = "X-Debug-Customer"
	// SessionCookie is the cookie the storefront debug banner sets.
	SessionCookie = "debugCustomerId"
	// GuestID identifies an anonymous visitor.
	GuestID = "guest"
)

// Session is the customer a request acts for. There is no
// authentication; the id is whatever the client claims.
type Session struct {
	CustomerID string `json:"customerId"`
	IsGuest    bool   `json:"isGuest"`
}

type sessionKey struct{}

// SessionFrom returns the session stored in ctx, or a guest session.
func SessionFrom(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionKey{}).(Session); ok {
		return s
	}
	return Session{CustomerID: GuestID, IsGuest: true}
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// sessionFromRequest reads the header first, then the cookie.
func sessionFromRequest(r *http.Request) Session {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = strings.TrimSpace(c.Value)
		}
	}
	if id == "" {
		id = GuestID
	}
	return Session{CustomerID: id, IsGuest: id == GuestID}
}
