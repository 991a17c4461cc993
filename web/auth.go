package web

import (
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/bid"
	"github.com/appaltosmart/webclient/core/session"
	"github.com/appaltosmart/webclient/services/marketplace"
)

func registerAuthRoutes(s *Server) {
	g := s.app.Group("", s.sessionMiddleware())

	g.GET("/login", s.loginPage)
	g.POST("/login", s.login)
	g.GET("/register", s.registerPage)
	g.POST("/register", s.register)
	g.POST("/logout", s.logout)
}

type loginForm struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
	Next     string `form:"next" json:"-"`
}

func (lf *loginForm) Validate(validate *validator.Validate) error {
	lf.Email = core.CleanString(lf.Email, true /* lower */)
	return validate.Struct(lf)
}

func (s *Server) loginPage(ctx echo.Context) error {
	if sess, ok := contextSession(ctx); ok {
		return ctx.Redirect(http.StatusFound, sess.User.HomePath())
	}
	return s.render(ctx, http.StatusOK, "login", s.newPage(ctx, map[string]string{
		"Next": ctx.QueryParam("next"),
	}))
}

func (s *Server) login(ctx echo.Context) error {
	var data loginForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to loginForm")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return s.renderForm(ctx, "login", s.newPage(ctx, map[string]string{"Next": data.Next}), err)
	}

	sess, cookie, err := s.deps.SessionSvc.Login(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == marketplace.ErrUnauthorized {
			err = core.NewValidationError(errors.New("invalid credentials"))
		}
		return s.renderForm(ctx, "login", s.newPage(ctx, map[string]string{"Next": data.Next}), err)
	}
	setSessionCookie(ctx, cookie, sess.ExpiresAt)
	s.ensurePoller(sess)

	// send the user back where they came from, never off-site
	next := data.Next
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = sess.User.HomePath()
	}
	return ctx.Redirect(http.StatusFound, next)
}

func (s *Server) registerPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "register", s.newPage(ctx, nil))
}

type registerForm struct {
	marketplace.RegisterInput
}

func (rf *registerForm) Validate(validate *validator.Validate) error {
	rf.Name = core.CleanString(rf.Name)
	rf.Email = core.CleanString(rf.Email, true /* lower */)
	rf.CompanyName = core.CleanString(rf.CompanyName)
	return validate.Struct(rf)
}

func (s *Server) register(ctx echo.Context) error {
	var data registerForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to registerForm")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return s.renderForm(ctx, "register", s.newPage(ctx, nil), err)
	}

	if err := s.deps.Mkt.Register(ctx.Request().Context(), data.RegisterInput); err != nil {
		return s.renderForm(ctx, "register", s.newPage(ctx, nil), err)
	}
	return ctx.Redirect(http.StatusFound, "/login")
}

func registerProfileRoutes(s *Server) {
	g := s.app.Group("/profile", s.sessionMiddleware(),
		s.requireRoles(session.RoleAdmin, session.RoleContractor, session.RoleOwner))

	g.GET("", s.profilePage)
	g.POST("/avatar", s.profileAvatarUpload)
}

func (s *Server) profilePage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "profile", s.newPage(ctx, nil))
}

func (s *Server) profileAvatarUpload(ctx echo.Context) error {
	sess, _ := contextSession(ctx)

	fh, err := ctx.FormFile("avatar")
	if err != nil {
		return s.renderForm(ctx, "profile", s.newPage(ctx, nil),
			core.NewValidationError(nil, core.FieldError{Field: "avatar", Error: "an image file is required"}))
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded avatar")
	}
	defer func() { _ = f.Close() }()
	content, err := ioutil.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "reading uploaded avatar")
	}

	up := bid.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        content,
	}
	if err := s.deps.Mkt.UploadAvatar(ctx.Request().Context(), sess.Token, up); err != nil {
		if isAuthErr(err) {
			return s.handleAPIError(ctx, err)
		}
		return s.renderForm(ctx, "profile", s.newPage(ctx, nil), err)
	}

	p := s.newPage(ctx, nil)
	p.Banner = "avatar updated"
	return s.render(ctx, http.StatusOK, "profile", p)
}

func (s *Server) logout(ctx echo.Context) error {
	if sess, ok := contextSession(ctx); ok {
		s.pollers.stop(sess.ID)
		if err := s.deps.SessionSvc.Invalidate(ctx.Request().Context(), sess.ID); err != nil {
			s.deps.Logger.Error("invalidating session on logout", err, sess.User)
		}
	}
	clearSessionCookie(ctx)
	return ctx.Redirect(http.StatusFound, "/login")
}
