package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
)

// Errors every caller can branch on. ErrUnauthorized in particular must
// bubble up untouched: the web layer reacts to it by destroying the session
// and redirecting to /login.
var (
	ErrUnauthorized = errors.New("marketplace: unauthorized")
	ErrForbidden    = errors.New("marketplace: permission denied")
	ErrNotFound     = errors.New("marketplace: not found")
)

// Client talks to the Appalto Smart marketplace REST API. It owns no business
// logic; every call is a thin JSON round-trip with the session's bearer token.
type Client struct {
	baseURL string
	http    *http.Client
	logger  core.Logger
}

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		baseURL: conf.Marketplace.BaseURL,
		http:    &http.Client{Timeout: conf.Marketplace.Timeout},
		logger:  logger,
	}
}

// NewClientWithHTTP allows tests to point the client at a fake server.
func NewClientWithHTTP(baseURL string, hc *http.Client, logger core.Logger) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, logger: logger}
}

type errorPayload struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors"`
}

func (c *Client) newRequest(ctx context.Context, token, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, "building request %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) checkStatus(res *http.Response, method, path string) error {
	if res.StatusCode < http.StatusBadRequest {
		return nil
	}

	raw, _ := ioutil.ReadAll(io.LimitReader(res.Body, 4<<10))

	switch res.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		c.logger.Warn(fmt.Sprintf("marketplace: %s %s: forbidden", method, path))
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		var payload errorPayload
		if err := json.Unmarshal(raw, &payload); err == nil {
			if len(payload.Errors) > 0 {
				flds := make([]core.FieldError, 0, len(payload.Errors))
				for fld, msg := range payload.Errors {
					flds = append(flds, core.FieldError{Field: fld, Error: msg})
				}
				return core.NewValidationError(errors.New("marketplace rejected the request"), flds...)
			}
			if payload.Error != "" {
				return core.NewValidationError(errors.New(payload.Error))
			}
		}
	}
	return errors.Errorf("marketplace: %s %s: status %d: %s", method, path, res.StatusCode, strings.TrimSpace(string(raw)))
}

// do performs a JSON round-trip. A nil `out` discards the response body.
func (c *Client) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s body", method, path)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, token, method, path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s %s", method, path)
	}
	defer func() { _ = res.Body.Close() }()

	if err := c.checkStatus(res, method, path); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}
	return nil
}

// doMultipart uploads a single file as multipart form data (PDF extraction
// only; every other upload travels base64-encoded inside JSON).
func (c *Client) doMultipart(ctx context.Context, token, path, field, filename string, content []byte, out interface{}) error {
	var buff bytes.Buffer
	w := multipart.NewWriter(&buff)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return errors.Wrap(err, "creating multipart file part")
	}
	if _, err = part.Write(content); err != nil {
		return errors.Wrap(err, "writing multipart content")
	}
	if err = w.Close(); err != nil {
		return errors.Wrap(err, "closing multipart writer")
	}

	req, err := c.newRequest(ctx, token, http.MethodPost, path, &buff)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling POST %s", path)
	}
	defer func() { _ = res.Body.Close() }()

	if err := c.checkStatus(res, http.MethodPost, path); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding POST %s response", path)
	}
	return nil
}

// doDownload streams a binary response.
func (c *Client) doDownload(ctx context.Context, token, path string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, token, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Del("Accept")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(err, "calling GET %s", path)
	}
	defer func() { _ = res.Body.Close() }()

	if err := c.checkStatus(res, http.MethodGet, path); err != nil {
		return nil, "", err
	}
	data, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, "", errors.Wrapf(err, "reading GET %s response", path)
	}
	return data, res.Header.Get("Content-Type"), nil
}
