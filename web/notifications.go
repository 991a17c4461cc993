package web

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/appaltosmart/webclient/core/notification"
	"github.com/appaltosmart/webclient/core/session"
)

func registerNotificationRoutes(s *Server) {
	g := s.app.Group("/notifications", s.sessionMiddleware(),
		s.requireRoles(session.RoleAdmin, session.RoleContractor, session.RoleOwner))

	g.GET("", s.notificationList)
	g.GET("/unread", s.notificationUnread)
	g.POST("/:id/read", s.notificationMarkRead)
	g.POST("/read-all", s.notificationMarkAllRead)
}

func (s *Server) sessionInbox(ctx echo.Context) (session.Session, *notification.Inbox) {
	sess, _ := contextSession(ctx)
	inbox := s.pollers.inbox(sess.ID)
	return sess, inbox
}

func (s *Server) notificationList(ctx echo.Context) error {
	sess, inbox := s.sessionInbox(ctx)
	if inbox == nil {
		s.ensurePoller(sess)
		_, inbox = s.sessionInbox(ctx)
	}

	items := []notification.Notification{}
	if inbox != nil {
		if _, err := inbox.Refresh(ctx.Request().Context()); err != nil {
			if isAuthErr(err) {
				return s.handleAPIError(ctx, err)
			}
			// fall through with the cached copy
			p := s.newPage(ctx, inbox.Items())
			p.Banner = "could not refresh notifications"
			return s.render(ctx, http.StatusOK, "notifications", p)
		}
		items = inbox.Items()
	}
	return s.render(ctx, http.StatusOK, "notifications", s.newPage(ctx, items))
}

// notificationUnread is the JSON fragment the pages poll for the badge count.
func (s *Server) notificationUnread(ctx echo.Context) error {
	_, inbox := s.sessionInbox(ctx)
	unread := 0
	if inbox != nil {
		unread = inbox.Unread()
	}
	return ctx.JSON(http.StatusOK, echo.Map{"unread": unread})
}

func (s *Server) notificationMarkRead(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}

	if _, inbox := s.sessionInbox(ctx); inbox != nil {
		inbox.MarkRead(ctx.Request().Context(), id)
	}
	return ctx.Redirect(http.StatusFound, "/notifications")
}

func (s *Server) notificationMarkAllRead(ctx echo.Context) error {
	if _, inbox := s.sessionInbox(ctx); inbox != nil {
		inbox.MarkAllRead(ctx.Request().Context())
	}
	return ctx.Redirect(http.StatusFound, "/notifications")
}
