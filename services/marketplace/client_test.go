package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/billing"
)

type testLogger struct{}

func (testLogger) Debug(msg string, args ...interface{}) {}
func (testLogger) Info(msg string, args ...interface{})  {}
func (testLogger) Warn(msg string, args ...interface{})  {}
func (testLogger) Error(msg string, args ...interface{}) {}
func (testLogger) Fatal(msg string, args ...interface{}) {}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(srv.URL, srv.Client(), testLogger{})
}

func TestClient_bearerToken(t *testing.T) {
	var gotAuth, gotAccept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`[]`))
	})

	if _, err := c.Tenders(context.Background(), "tok123", TenderFilter{}); err != nil {
		t.Fatalf("Tenders() failed: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok123")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
}

func TestClient_anonymousLoginOmitsToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(loginResponse{Token: "new-token"})
	})

	token, _, err := c.Login(context.Background(), "a@b.c", "pwd")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty for login", gotAuth)
	}
	if token != "new-token" {
		t.Errorf("token = %q, want new-token", token)
	}
}

func TestClient_statusMapping(t *testing.T) {
	tts := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "401", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "403", status: http.StatusForbidden, wantErr: ErrForbidden},
		{name: "404", status: http.StatusNotFound, wantErr: ErrNotFound},
	}
	for _, tt := range tts {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.TenderByID(context.Background(), "tok", 1)
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_validationErrorMapping(t *testing.T) {
	t.Run("field errors", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors": {"deadline": "must be in the future"}}`))
		})

		_, err := c.TenderByID(context.Background(), "tok", 1)
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("error = %T, want *core.ValidationError", err)
		}
		if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "deadline" {
			t.Errorf("Fields = %+v, want deadline", vErr.Fields)
		}
	})

	t.Run("plain error message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "insufficient credits"}`))
		})

		_, err := c.UnlockTender(context.Background(), "tok", 1)
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("error = %T, want *core.ValidationError", err)
		}
		if vErr.Error() != "insufficient credits" {
			t.Errorf("message = %q, want insufficient credits", vErr.Error())
		}
	})

	t.Run("unparseable body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		})

		_, err := c.TenderByID(context.Background(), "tok", 1)
		if err == nil || !strings.Contains(err.Error(), "status 500") {
			t.Errorf("error = %v, want wrapped status error", err)
		}
	})
}

func TestClient_notificationWireMapping(t *testing.T) {
	readAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications" {
			t.Errorf("path = %s, want /notifications", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"id": 1, "data": {"message": "bid received"}, "read_at": null, "created_at": "2026-08-01T09:00:00Z"},
			{"id": 2, "data": {"message": "tender awarded"}, "read_at": "2026-08-01T10:00:00Z", "created_at": "2026-08-01T08:00:00Z"}
		]`))
	})

	res, err := c.Notifications(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Notifications() failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d notifications, want 2", len(res))
	}
	if res[0].Message != "bid received" || !res[0].Unread() {
		t.Errorf("res[0] = %+v, want unread 'bid received'", res[0])
	}
	if res[1].Unread() || !res[1].ReadAt.Equal(readAt) {
		t.Errorf("res[1] = %+v, want read at %v", res[1], readAt)
	}
}

func TestClient_StartExtraction_multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %s, want multipart", r.Header.Get("Content-Type"))
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() failed: %v", err)
		}
		defer func() { _ = f.Close() }()
		if fh.Filename != "boq.pdf" {
			t.Errorf("filename = %s, want boq.pdf", fh.Filename)
		}
		_, _ = w.Write([]byte(`{"extraction_id": "abc123", "status": "processing"}`))
	})

	res, err := c.StartExtraction(context.Background(), "tok", "boq.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("StartExtraction() failed: %v", err)
	}
	if res.ID != "abc123" || res.Status != "processing" {
		t.Errorf("res = %+v, want abc123/processing", res)
	}
}

func TestClient_Billing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"balance": {"credits": 12, "unlock_cost": 5},
			"transactions": [{"id": 1, "kind": "purchase", "credits": 10}]
		}`))
	})

	balance, txs, err := c.Billing(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 12, balance.Credits)
	assert.True(t, balance.CanUnlock())
	require.Len(t, txs, 1)
	assert.Equal(t, "purchase", txs[0].Kind)
}

func TestClient_Purchase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req billing.PurchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Pack != "starter" {
			t.Errorf("pack = %s, want starter", req.Pack)
		}
		_, _ = w.Write([]byte(`{"balance": {"credits": 10, "unlock_cost": 5}}`))
	})

	balance, err := c.Purchase(context.Background(), "tok", billing.PurchaseRequest{Pack: "starter"})
	require.NoError(t, err)
	assert.Equal(t, 10, balance.Credits)
}

func TestClient_DownloadDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 content"))
	})

	dl, err := c.DownloadDocument(context.Background(), "tok", 9)
	if err != nil {
		t.Fatalf("DownloadDocument() failed: %v", err)
	}
	if dl.ContentType != "application/pdf" {
		t.Errorf("ContentType = %s, want application/pdf", dl.ContentType)
	}
	if string(dl.Data) != "%PDF-1.4 content" {
		t.Errorf("Data = %q, unexpected", dl.Data)
	}
}
