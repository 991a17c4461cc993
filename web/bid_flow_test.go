package web

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestServer_bidComposition(t *testing.T) {
	mkt := newFakeMarketplace(t)
	s := newTestServer(t, mkt)
	cookie := login(t, s, "contractor@test.it")

	t.Run("form renders the BOQ rows", func(t *testing.T) {
		rec := doReq(s, http.MethodGet, "/contractor/tenders/5/bid", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
		}
		body := rec.Body.String()
		for _, want := range []string{"Excavation", "Site setup", "price_10", "price_11"} {
			if !strings.Contains(body, want) {
				t.Errorf("form is missing %q", want)
			}
		}
	})

	t.Run("save persists a zero-total draft", func(t *testing.T) {
		rec := doReq(s, http.MethodPost, "/contractor/tenders/5/bid", url.Values{
			"action": {"save"},
		}, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
		}
		if mkt.lastDraft == nil {
			t.Fatal("no draft reached the marketplace")
		}
		if mkt.lastDraft.TotalAmount != 0 {
			t.Errorf("TotalAmount = %v, want 0", mkt.lastDraft.TotalAmount)
		}
	})

	t.Run("submit without preconditions never hits the network", func(t *testing.T) {
		mkt.lastDraft = nil
		rec := doReq(s, http.MethodPost, "/contractor/tenders/5/bid", url.Values{
			"action": {"submit"},
		}, cookie)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "greater than zero") {
			t.Error("expected the total violation in the response")
		}
		if !strings.Contains(body, "offer file or a signature") {
			t.Error("expected the attachment violation in the response")
		}
		if mkt.lastDraft != nil || mkt.submitted {
			t.Error("invalid submit must not reach the marketplace")
		}
	})

	t.Run("negative price is rejected", func(t *testing.T) {
		rec := doReq(s, http.MethodPost, "/contractor/tenders/5/bid", url.Values{
			"action":   {"save"},
			"price_10": {"-5"},
		}, cookie)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "negative") {
			t.Error("expected the negative price message in the response")
		}
	})

	t.Run("full submit runs both phases with the discounted total", func(t *testing.T) {
		mkt.lastDraft = nil
		mkt.submitted = false

		rec := doReq(s, http.MethodPost, "/contractor/tenders/5/bid", url.Values{
			"action":         {"submit"},
			"price_10":       {"100"},
			"price_11":       {"50"},
			"discount_mode":  {"percent"},
			"discount_value": {"10"},
			"proposal":       {"We can start next week."},
			"signature":      {"data:image/png;base64,aGVsbG8="},
		}, cookie)
		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302; body: %s", rec.Code, rec.Body.String())
		}
		if loc := rec.Header().Get("Location"); loc != "/contractor/bids" {
			t.Errorf("Location = %s, want /contractor/bids", loc)
		}

		if mkt.lastDraft == nil {
			t.Fatal("no draft reached the marketplace")
		}
		// (100×3 + 50) − 10% = 315
		if mkt.lastDraft.TotalAmount != 315 {
			t.Errorf("TotalAmount = %v, want 315", mkt.lastDraft.TotalAmount)
		}
		if mkt.lastDraft.OfferFile == nil || mkt.lastDraft.OfferFile.Filename != "signature.png" {
			t.Errorf("OfferFile = %+v, want the signature image", mkt.lastDraft.OfferFile)
		}
		if !mkt.submitted {
			t.Error("phase two never ran")
		}
	})

	t.Run("review shows the confirmation page", func(t *testing.T) {
		rec := doReq(s, http.MethodPost, "/contractor/tenders/5/bid", url.Values{
			"action":    {"review"},
			"price_10":  {"100"},
			"signature": {"data:image/png;base64,aGVsbG8="},
		}, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Confirm your bid") {
			t.Error("expected the confirmation page")
		}
	})
}
