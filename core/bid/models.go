package bid

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Statuses
const (
	StatusDraft       = "draft"
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusAwarded     = "awarded"
	StatusRejected    = "rejected"
)

// Discount modes
const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// Upload is a file carried inside a JSON payload; Data is base64-encoded on
// the wire (encoding/json does this for []byte).
type Upload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// BidItem is one priced BOQ row as sent to the marketplace. Total is
// display-side only; the marketplace recomputes it under its own authority.
type BidItem struct {
	BOQItemID   int     `json:"boq_item_id"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
}

type Bid struct {
	ID           int       `json:"id"`
	TenderID     int       `json:"tender_id"`
	ContractorID int       `json:"contractor_id"`
	Items        []BidItem `json:"bid_items"`
	TotalAmount  float64   `json:"total_amount"`
	Proposal     string    `json:"proposal"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Draft is the upsert payload for POST /tenders/{id}/bids.
type Draft struct {
	Items         []BidItem `json:"bid_items"`
	DiscountMode  string    `json:"discount_mode,omitempty"`
	DiscountValue float64   `json:"discount_value,omitempty"`
	TotalAmount   float64   `json:"total_amount"`
	Proposal      string    `json:"proposal,omitempty"`
	OfferFile     *Upload   `json:"offer_file,omitempty"`
}

// DataURL re-encodes the upload as a data URL so the confirmation page can
// carry a captured signature through a plain form re-post.
func (u *Upload) DataURL() string {
	return "data:" + u.ContentType + ";base64," + base64.StdEncoding.EncodeToString(u.Data)
}

var errBadDataURL = errors.New("malformed image data URL")

// DecodeSignatureDataURL converts a captured signature ("data:image/png;base64,...")
// into an image Upload, mirroring the canvas-to-file conversion done in the browser.
func DecodeSignatureDataURL(s string) (*Upload, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, errBadDataURL
	}
	rest := s[len("data:"):]
	sep := strings.Index(rest, ",")
	if sep < 0 {
		return nil, errBadDataURL
	}
	meta, payload := rest[:sep], rest[sep+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errBadDataURL
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errBadDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(errBadDataURL, err.Error())
	}

	ext := "png"
	if i := strings.Index(contentType, "/"); i >= 0 && i+1 < len(contentType) {
		ext = contentType[i+1:]
	}
	return &Upload{
		Filename:    "signature." + ext,
		ContentType: contentType,
		Data:        data,
	}, nil
}
