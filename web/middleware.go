package web

import (
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core/session"
	"github.com/appaltosmart/webclient/services/marketplace"
)

const (
	sessionCookieName = "appalto_session"
	contextSessionKey = "session"
)

func contextSession(ctx echo.Context) (session.Session, bool) {
	sess, ok := ctx.Get(contextSessionKey).(session.Session)
	return sess, ok
}

func setSessionCookie(ctx echo.Context, value string, expires time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// sessionMiddleware resolves the session cookie if present. The cached user
// snapshot is trusted as-is; no marketplace round-trip happens here.
func (s *Server) sessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cookie, err := ctx.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				return next(ctx)
			}

			sess, err := s.deps.SessionSvc.Resolve(ctx.Request().Context(), cookie.Value)
			if err != nil {
				switch errors.Cause(err) {
				case session.ErrNotFound, session.ErrSessionExpired:
					// the session ended without a logout; its poller must not
					// outlive it
					if id, idErr := s.deps.SessionSvc.SessionID(cookie.Value); idErr == nil {
						s.pollers.stop(id)
					}
					clearSessionCookie(ctx)
					return next(ctx)
				case session.ErrInvalidCookie:
					clearSessionCookie(ctx)
					return next(ctx)
				}
				return err
			}

			ctx.Set(contextSessionKey, sess)
			s.ensurePoller(sess)
			return next(ctx)
		}
	}
}

// requireRoles guards a route group: anonymous visits bounce to /login with
// the original path preserved, the wrong role bounces to its own home.
func (s *Server) requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, ok := contextSession(ctx)
			if !ok {
				q := make(url.Values)
				q.Set("next", ctx.Request().URL.RequestURI())
				return ctx.Redirect(http.StatusFound, "/login?"+q.Encode())
			}

			for _, role := range roles {
				if sess.User.Role == role {
					return next(ctx)
				}
			}
			return ctx.Redirect(http.StatusFound, sess.User.HomePath())
		}
	}
}

// isAuthErr reports whether a marketplace error must be routed through
// handleAPIError instead of the page's own error rendering.
func isAuthErr(err error) bool {
	switch errors.Cause(err) {
	case marketplace.ErrUnauthorized, marketplace.ErrForbidden:
		return true
	}
	return false
}

// handleAPIError translates marketplace failures into the behaviors the
// session contract demands: 401 kills the session and forces a re-login, 403
// is logged with no user-facing recovery, everything else bubbles up.
func (s *Server) handleAPIError(ctx echo.Context, err error) error {
	switch errors.Cause(err) {
	case marketplace.ErrUnauthorized:
		if sess, ok := contextSession(ctx); ok {
			s.pollers.stop(sess.ID)
			if iErr := s.deps.SessionSvc.Invalidate(ctx.Request().Context(), sess.ID); iErr != nil {
				s.deps.Logger.Error("invalidating session after 401", iErr)
			}
		}
		clearSessionCookie(ctx)
		return ctx.Redirect(http.StatusFound, "/login")
	case marketplace.ErrForbidden:
		if sess, ok := contextSession(ctx); ok {
			s.deps.Logger.Warn("marketplace denied the request", err, sess.User)
			return ctx.Redirect(http.StatusFound, sess.User.HomePath())
		}
		return ctx.Redirect(http.StatusFound, "/")
	}
	return err
}
