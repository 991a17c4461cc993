package web

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/account"
	"github.com/appaltosmart/webclient/core/session"
)

func registerOwnerRoutes(s *Server) {
	g := s.app.Group("/owner", s.sessionMiddleware(), s.requireRoles(session.RoleOwner))

	g.GET("", s.ownerDashboard)
	g.GET("/revenue", s.ownerRevenue)
	g.GET("/users", s.ownerUsers)
	g.POST("/users/:id", s.ownerUpdateUser)
	g.GET("/audit", s.ownerAuditLogs)
	g.GET("/config", s.ownerConfig)
	g.POST("/config", s.ownerUpdateConfig)
}

func (s *Server) ownerDashboard(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	stats, err := s.deps.Mkt.OwnerDashboard(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "owner_dashboard", s.newPage(ctx, stats))
}

func (s *Server) ownerRevenue(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	points, err := s.deps.Mkt.OwnerRevenue(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "owner_revenue", s.newPage(ctx, points))
}

func (s *Server) ownerUsers(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	users, err := s.deps.Mkt.OwnerUsers(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "owner_users", s.newPage(ctx, users))
}

// ownerUpdateUser verifies or suspends an account. The form posts the intended
// action rather than the full record.
func (s *Server) ownerUpdateUser(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	var in account.UserUpdate
	switch action := ctx.FormValue("action"); action {
	case "verify":
		verified := true
		in.Verified = &verified
	case "suspend":
		in.Status = "suspended"
	case "activate":
		in.Status = "active"
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "action", Error: "unknown action"})
	}
	if err := in.Validate(s.deps.Validate); err != nil {
		return err
	}

	if _, err := s.deps.Mkt.OwnerUpdateUser(ctx.Request().Context(), sess.Token, id, in); err != nil {
		return s.handleAPIError(ctx, err)
	}
	return ctx.Redirect(http.StatusFound, "/owner/users")
}

func (s *Server) ownerAuditLogs(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	entries, err := s.deps.Mkt.OwnerAuditLogs(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "owner_audit", s.newPage(ctx, entries))
}

func (s *Server) ownerConfig(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	conf, err := s.deps.Mkt.OwnerConfig(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "owner_config", s.newPage(ctx, conf))
}

func (s *Server) ownerUpdateConfig(ctx echo.Context) error {
	sess, _ := contextSession(ctx)

	var in account.PlatformConfig
	var flds []core.FieldError
	if raw := ctx.FormValue("commission_pct"); raw != "" {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "commission_pct", Error: "invalid percentage"})
		}
		in.CommissionPct = pct
	}
	if raw := ctx.FormValue("unlock_cost"); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "unlock_cost", Error: "invalid credit amount"})
		}
		in.UnlockCost = cost
	}
	in.SupportEmail = core.CleanString(ctx.FormValue("support_email"), true /* lower */)

	if flds != nil {
		return s.renderForm(ctx, "owner_config", s.newPage(ctx, in), core.NewValidationError(nil, flds...))
	}
	if err := in.Validate(s.deps.Validate); err != nil {
		return s.renderForm(ctx, "owner_config", s.newPage(ctx, in), err)
	}

	updated, err := s.deps.Mkt.OwnerUpdateConfig(ctx.Request().Context(), sess.Token, in)
	if err != nil {
		if isAuthErr(err) {
			return s.handleAPIError(ctx, err)
		}
		return s.renderForm(ctx, "owner_config", s.newPage(ctx, in), err)
	}

	p := s.newPage(ctx, updated)
	p.Banner = "configuration saved"
	return s.render(ctx, http.StatusOK, "owner_config", p)
}
