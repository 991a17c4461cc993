package web

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
)

// fieldErrorMap flattens our two validation error shapes into field → message.
func (s *Server) fieldErrorMap(err error) (map[string]string, string, bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		flds := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			flds[vErr.Field()] = vErr.Translate(s.deps.Translator)
		}
		return flds, "", true
	case *core.ValidationError:
		if origErr.Fields != nil {
			flds := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				flds[fErr.Field] = fErr.Error
			}
			return flds, "", true
		}
		return nil, origErr.Error(), true
	}
	return nil, "", false
}

// newHTTPErrorHandler renders uncaught errors as the error page. Validation
// errors that escape a handler become a 400 with a banner; anything else is a
// logged 500 (the message is only echoed back in debug).
func (s *Server) newHTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		banner := http.StatusText(code)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				banner = m
			}
		default:
			if _, msg, ok := s.fieldErrorMap(err); ok {
				code = http.StatusBadRequest
				banner = msg
				if banner == "" {
					banner = "invalid input"
				}
				break
			}

			args := []interface{}{errors.Wrap(err, banner)}
			if sess, ok := contextSession(ctx); ok {
				args = append(args, sess.User)
			}
			s.deps.Logger.Error(banner, args...)

			if core.IsShutdown(err) {
				s.shutdownSignal <- nil
			}
		}

		if ctx.Echo().Debug {
			banner = err.Error()
		}

		if !ctx.Response().Committed {
			p := s.newPage(ctx, nil)
			p.Banner = banner
			if rErr := s.render(ctx, code, "error", p); rErr != nil {
				ctx.Echo().Logger.Error(rErr)
			}
		}
	}
}
