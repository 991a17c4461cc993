package web

import (
	"fmt"
	htmltmpl "html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/session"
)

var webTemplates = make(map[string]*htmltmpl.Template)

var templateFuncs = htmltmpl.FuncMap{
	"amount": core.FormatAmount,
	"timeleft": func(d time.Duration) string {
		if d <= 0 {
			return "expired"
		}
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		if days > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dh %dm", hours, int(d.Minutes())%60)
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("02 Jan 2006 15:04")
	},
	// value format of <input type="datetime-local">
	"datelocal": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02T15:04")
	},
}

// parseWebTemplates loads all page templates from assets/templates/web; each
// page is parsed together with the shared "_base.gohtml" layout.
func parseWebTemplates(conf *core.Config, logger core.Logger) {
	webTemplates = make(map[string]*htmltmpl.Template)

	rp := filepath.Join(conf.WorkDir, "assets", "templates", "web")
	fps, err := filepath.Glob(filepath.Join(rp, "*.gohtml"))
	if err != nil {
		logger.Error("parsing web templates", errors.Wrap(err, "globbing web templates"))
		return
	}

	for _, fp := range fps {
		fname := filepath.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, ".gohtml")
		tmpl, err := htmltmpl.New("_base.gohtml").Funcs(templateFuncs).
			ParseFiles(filepath.Join(rp, "_base.gohtml"), fp)
		if err != nil {
			logger.Error("parsing web templates", errors.Wrap(err, "parsing "+fname))
			continue
		}
		webTemplates[name] = tmpl
	}
}

// page is the payload handed to every template.
type page struct {
	AppName string
	Session *session.Session
	Unread  int
	Banner  string            // red banner for API errors
	Errors  map[string]string // inline field errors
	Data    interface{}
}

func (s *Server) newPage(ctx echo.Context, data interface{}) *page {
	p := &page{AppName: s.deps.Conf.AppName, Data: data}
	if sess, ok := contextSession(ctx); ok {
		p.Session = &sess
		if inbox := s.pollers.inbox(sess.ID); inbox != nil {
			p.Unread = inbox.Unread()
		}
	}
	return p
}

func (s *Server) render(ctx echo.Context, code int, name string, p *page) error {
	tmpl, ok := webTemplates[name]
	if !ok {
		return errors.Errorf("web template %q not found", name)
	}

	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(code)
	if err := tmpl.ExecuteTemplate(ctx.Response(), "base", p); err != nil {
		return errors.Wrap(err, "rendering "+name)
	}
	return nil
}

// renderForm re-renders a page with a validation error's field messages
// inline; non-validation errors bubble to the HTTP error handler.
func (s *Server) renderForm(ctx echo.Context, name string, p *page, err error) error {
	flds, banner, ok := s.fieldErrorMap(err)
	if !ok {
		return err
	}
	p.Errors = flds
	p.Banner = banner
	return s.render(ctx, http.StatusBadRequest, name, p)
}
