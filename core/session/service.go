package session

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrInvalidCookie  = errors.New("invalid session cookie")
	ErrSessionExpired = errors.New("session expired")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) error
		GetSession(ctx context.Context, id string) (Session, error)
		TouchSession(ctx context.Context, id string, at time.Time) error
		DeleteSession(ctx context.Context, id string) error
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
	}

	// Authenticator exchanges credentials for a marketplace bearer token and
	// the account it belongs to. Implemented by the marketplace client.
	Authenticator interface {
		Login(ctx context.Context, email, password string) (token string, usr User, err error)
	}

	Service struct {
		repo Repository
		auth Authenticator
		conf *core.Config
	}
)

func NewService(repo Repository, auth Authenticator, conf *core.Config) *Service {
	return &Service{repo: repo, auth: auth, conf: conf}
}

// Claims is the signed content of the session cookie: the session ID plus the
// user snapshot needed for an immediate render.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
}

func (s *Service) getClaims(sess Session) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.conf.AppName,
			Subject:   sess.ID,
			ExpiresAt: sess.ExpiresAt.Unix(),
			IssuedAt:  sess.CreatedAt.Unix(),
		},
		Role: sess.User.Role,
		Name: sess.User.Name,
	}
}

// CookieValue generates the signed JWT string stored in the session cookie.
func (s *Service) CookieValue(sess Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, s.getClaims(sess))
	ss, err := token.SignedString([]byte(s.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing session cookie")
	}
	return ss, nil
}

func (s *Service) parseCookie(value string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCookie
		}
		return []byte(s.conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCookie
	}
	return claims, nil
}

// SessionID extracts the session ID from a cookie value without consulting
// the store. Lets callers clean up per-session state once the session row
// itself is already gone.
func (s *Service) SessionID(cookieValue string) (string, error) {
	claims, err := s.parseCookie(cookieValue)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Login authenticates against the marketplace, persists a new session and
// returns it along with its signed cookie value.
func (s *Service) Login(ctx context.Context, email, password string) (Session, string, error) {
	token, usr, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return Session{}, "", err
	}

	now := time.Now().UTC()
	sess := Session{
		ID:         uuid.New().String(),
		Token:      token,
		User:       usr,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.conf.SessionTTL),
		LastSeenAt: now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return Session{}, "", errors.Wrap(err, "creating session")
	}

	cookie, err := s.CookieValue(sess)
	if err != nil {
		return Session{}, "", err
	}
	return sess, cookie, nil
}

// Resolve maps a cookie value back to a live session. The stored snapshot is
// trusted as-is; the marketplace is not consulted until a later call answers 401.
func (s *Service) Resolve(ctx context.Context, cookieValue string) (Session, error) {
	claims, err := s.parseCookie(cookieValue)
	if err != nil {
		return Session{}, err
	}

	sess, err := s.repo.GetSession(ctx, claims.Subject)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Session{}, ErrNotFound
		}
		return Session{}, errors.Wrap(err, "loading session")
	}

	now := time.Now().UTC()
	if sess.Expired(now) {
		_ = s.repo.DeleteSession(ctx, sess.ID)
		return Session{}, ErrSessionExpired
	}
	if err := s.repo.TouchSession(ctx, sess.ID, now); err != nil {
		return Session{}, errors.Wrap(err, "touching session")
	}
	sess.LastSeenAt = now
	return sess, nil
}

// Invalidate destroys a session; used on logout and whenever the marketplace
// answers 401 to any call made with the session's token.
func (s *Service) Invalidate(ctx context.Context, id string) error {
	if err := s.repo.DeleteSession(ctx, id); err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

// PurgeExpired removes all sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpiredSessions(ctx, time.Now().UTC())
	return n, errors.Wrap(err, "purging expired sessions")
}
