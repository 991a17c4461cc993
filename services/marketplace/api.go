package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/appaltosmart/webclient/core/account"
	"github.com/appaltosmart/webclient/core/bid"
	"github.com/appaltosmart/webclient/core/billing"
	"github.com/appaltosmart/webclient/core/document"
	"github.com/appaltosmart/webclient/core/extraction"
	"github.com/appaltosmart/webclient/core/notification"
	"github.com/appaltosmart/webclient/core/session"
	"github.com/appaltosmart/webclient/core/tender"
)

// Auth

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// Login implements session.Authenticator.
func (c *Client) Login(ctx context.Context, email, password string) (string, session.User, error) {
	var res loginResponse
	err := c.do(ctx, "", http.MethodPost, "/login", loginRequest{Email: email, Password: password}, &res)
	return res.Token, res.User, err
}

type RegisterInput struct {
	Name            string `form:"name" json:"name" validate:"required"`
	Email           string `form:"email" json:"email" validate:"required,email"`
	Password        string `form:"password" json:"password" validate:"required,min=8"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `form:"role" json:"role" validate:"required,oneof=admin contractor"`
	CompanyName     string `form:"company_name" json:"company_name"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) error {
	return c.do(ctx, "", http.MethodPost, "/register", in, nil)
}

// Tenders

type TenderFilter struct {
	Status string
	Search string
}

func (f TenderFilter) query() string {
	v := make(url.Values)
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) Tenders(ctx context.Context, token string, filter TenderFilter) ([]tender.Tender, error) {
	var res []tender.Tender
	err := c.do(ctx, token, http.MethodGet, "/tenders"+filter.query(), nil, &res)
	return res, err
}

func (c *Client) TenderByID(ctx context.Context, token string, id int) (tender.Tender, error) {
	var res tender.Tender
	err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/tenders/%d", id), nil, &res)
	return res, err
}

func (c *Client) CreateTender(ctx context.Context, token string, in tender.NewTender) (tender.Tender, error) {
	var res tender.Tender
	err := c.do(ctx, token, http.MethodPost, "/tenders", in, &res)
	return res, err
}

func (c *Client) UpdateTender(ctx context.Context, token string, id int, in tender.UpdateTender) (tender.Tender, error) {
	var res tender.Tender
	err := c.do(ctx, token, http.MethodPut, fmt.Sprintf("/tenders/%d", id), in, &res)
	return res, err
}

func (c *Client) PublishTender(ctx context.Context, token string, id int) (tender.Tender, error) {
	var res tender.Tender
	err := c.do(ctx, token, http.MethodPost, fmt.Sprintf("/tenders/%d/publish", id), nil, &res)
	return res, err
}

// UnlockTender spends credits to open a tender's full detail for bidding.
func (c *Client) UnlockTender(ctx context.Context, token string, id int) (tender.Tender, error) {
	var res tender.Tender
	err := c.do(ctx, token, http.MethodPost, fmt.Sprintf("/tenders/%d/unlock", id), nil, &res)
	return res, err
}

// Bids

func (c *Client) TenderBids(ctx context.Context, token string, tenderID int) ([]bid.Bid, error) {
	var res []bid.Bid
	err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/tenders/%d/bids", tenderID), nil, &res)
	return res, err
}

// UpsertBid implements bid.Upserter (phase one of the submit flow).
func (c *Client) UpsertBid(ctx context.Context, token string, tenderID int, draft bid.Draft) (bid.Bid, error) {
	var res bid.Bid
	err := c.do(ctx, token, http.MethodPost, fmt.Sprintf("/tenders/%d/bids", tenderID), draft, &res)
	return res, err
}

// SubmitBid implements bid.Upserter (phase two).
func (c *Client) SubmitBid(ctx context.Context, token string, bidID int) (bid.Bid, error) {
	var res bid.Bid
	err := c.do(ctx, token, http.MethodPost, fmt.Sprintf("/bids/%d/submit", bidID), nil, &res)
	return res, err
}

func (c *Client) AwardBid(ctx context.Context, token string, bidID int) (bid.Bid, error) {
	var res bid.Bid
	err := c.do(ctx, token, http.MethodPost, fmt.Sprintf("/bids/%d/award", bidID), nil, &res)
	return res, err
}

func (c *Client) MyBids(ctx context.Context, token string) ([]bid.Bid, error) {
	var res []bid.Bid
	err := c.do(ctx, token, http.MethodGet, "/my-bids", nil, &res)
	return res, err
}

// Notifications
// Wire shape: {id, data: {message}, read_at, created_at} with a nullable read_at.

type notificationPayload struct {
	ID   int `json:"id"`
	Data struct {
		Message string `json:"message"`
	} `json:"data"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (p notificationPayload) toNotification() notification.Notification {
	n := notification.Notification{ID: p.ID, Message: p.Data.Message, CreatedAt: p.CreatedAt}
	if p.ReadAt != nil {
		n.ReadAt = *p.ReadAt
	}
	return n
}

// Notifications implements notification.Fetcher.
func (c *Client) Notifications(ctx context.Context, token string) ([]notification.Notification, error) {
	var payload []notificationPayload
	if err := c.do(ctx, token, http.MethodGet, "/notifications", nil, &payload); err != nil {
		return nil, err
	}
	res := make([]notification.Notification, 0, len(payload))
	for _, p := range payload {
		res = append(res, p.toNotification())
	}
	return res, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, token string, id int) error {
	return c.do(ctx, token, http.MethodPut, fmt.Sprintf("/notifications/%d/read", id), nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, token string) error {
	return c.do(ctx, token, http.MethodPut, "/notifications/read-all", nil, nil)
}

// Directory & documents

func (c *Client) Contractors(ctx context.Context, token string) ([]account.ManagedUser, error) {
	var res []account.ManagedUser
	err := c.do(ctx, token, http.MethodGet, "/contractors", nil, &res)
	return res, err
}

func (c *Client) Documents(ctx context.Context, token string) ([]document.Document, error) {
	var res []document.Document
	err := c.do(ctx, token, http.MethodGet, "/documents", nil, &res)
	return res, err
}

func (c *Client) DownloadDocument(ctx context.Context, token string, id int) (document.Download, error) {
	data, contentType, err := c.doDownload(ctx, token, fmt.Sprintf("/documents/%d/download", id))
	if err != nil {
		return document.Download{}, err
	}
	return document.Download{Name: fmt.Sprintf("document-%d", id), ContentType: contentType, Data: data}, nil
}

// UploadDocument sends a file base64-encoded inside JSON, as the marketplace
// expects for all non-extraction uploads.
func (c *Client) UploadDocument(ctx context.Context, token string, up bid.Upload) (document.Document, error) {
	var res document.Document
	err := c.do(ctx, token, http.MethodPost, "/documents", up, &res)
	return res, err
}

func (c *Client) UploadAvatar(ctx context.Context, token string, up bid.Upload) error {
	return c.do(ctx, token, http.MethodPut, "/profile/avatar", up, nil)
}

// Billing

type billingResponse struct {
	Balance      billing.Balance       `json:"balance"`
	Transactions []billing.Transaction `json:"transactions"`
}

func (c *Client) Billing(ctx context.Context, token string) (billing.Balance, []billing.Transaction, error) {
	var res billingResponse
	err := c.do(ctx, token, http.MethodGet, "/billing", nil, &res)
	return res.Balance, res.Transactions, err
}

func (c *Client) Purchase(ctx context.Context, token string, req billing.PurchaseRequest) (billing.Balance, error) {
	var res billingResponse
	err := c.do(ctx, token, http.MethodPost, "/billing/purchase", req, &res)
	return res.Balance, err
}

// Owner

func (c *Client) OwnerDashboard(ctx context.Context, token string) (account.DashboardStats, error) {
	var res account.DashboardStats
	err := c.do(ctx, token, http.MethodGet, "/owner/dashboard", nil, &res)
	return res, err
}

func (c *Client) OwnerRevenue(ctx context.Context, token string) ([]account.RevenuePoint, error) {
	var res []account.RevenuePoint
	err := c.do(ctx, token, http.MethodGet, "/owner/revenue", nil, &res)
	return res, err
}

func (c *Client) OwnerUsers(ctx context.Context, token string) ([]account.ManagedUser, error) {
	var res []account.ManagedUser
	err := c.do(ctx, token, http.MethodGet, "/owner/users", nil, &res)
	return res, err
}

func (c *Client) OwnerUpdateUser(ctx context.Context, token string, id int, in account.UserUpdate) (account.ManagedUser, error) {
	var res account.ManagedUser
	err := c.do(ctx, token, http.MethodPut, fmt.Sprintf("/owner/users/%d", id), in, &res)
	return res, err
}

func (c *Client) OwnerAuditLogs(ctx context.Context, token string) ([]account.AuditLogEntry, error) {
	var res []account.AuditLogEntry
	err := c.do(ctx, token, http.MethodGet, "/owner/audit-logs", nil, &res)
	return res, err
}

func (c *Client) OwnerConfig(ctx context.Context, token string) (account.PlatformConfig, error) {
	var res account.PlatformConfig
	err := c.do(ctx, token, http.MethodGet, "/owner/config", nil, &res)
	return res, err
}

func (c *Client) OwnerUpdateConfig(ctx context.Context, token string, in account.PlatformConfig) (account.PlatformConfig, error) {
	var res account.PlatformConfig
	err := c.do(ctx, token, http.MethodPut, "/owner/config", in, &res)
	return res, err
}

// Extraction

// StartExtraction uploads a BOQ PDF. The marketplace either answers with the
// extracted items right away (status completed) or with an extraction_id to poll.
func (c *Client) StartExtraction(ctx context.Context, token, filename string, pdf []byte) (extraction.Result, error) {
	var res extraction.Result
	err := c.doMultipart(ctx, token, "/extractions", "file", filename, pdf, &res)
	return res, err
}

// Extraction implements extraction.Getter.
func (c *Client) Extraction(ctx context.Context, token, id string) (extraction.Result, error) {
	var res extraction.Result
	err := c.do(ctx, token, http.MethodGet, "/extractions/"+url.PathEscape(id), nil, &res)
	return res, err
}
