package app

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Session is who the CLI syncs as.
type Session struct {
	UserID string
	Token  string
}

func (s Session) SignedIn() bool { return s.UserID != "" && s.Token != "" }

// NewSession takes the user id from remote.user, or else from the token's
// subject. The token is not verified here; the server does that.
func NewSession(cfg RemoteConfig) (Session, error) {
	s := Session{UserID: cfg.UserID, Token: cfg.Token}
	if s.UserID != "" || s.Token == "" {
		return s, nil
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return Session{}, fmt.Errorf("read remote token: %w", err)
	}
	s.UserID = claims.Subject
	return s, nil
}
