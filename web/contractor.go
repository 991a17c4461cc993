package web

import (
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/bid"
	"github.com/appaltosmart/webclient/core/billing"
	"github.com/appaltosmart/webclient/core/session"
	"github.com/appaltosmart/webclient/core/tender"
)

func registerContractorRoutes(s *Server) {
	g := s.app.Group("/contractor", s.sessionMiddleware(), s.requireRoles(session.RoleContractor))

	g.GET("", s.contractorDashboard)
	g.GET("/tenders/:id", s.contractorTenderDetail)
	g.POST("/tenders/:id/unlock", s.contractorUnlock)
	g.GET("/tenders/:id/bid", s.contractorBidForm)
	g.POST("/tenders/:id/bid", s.contractorBidSave)
	g.GET("/bids", s.contractorMyBids)
	g.GET("/billing", s.contractorBilling)
	g.POST("/billing/purchase", s.contractorPurchase)
	g.GET("/documents", s.contractorDocuments)
	g.POST("/documents", s.contractorDocumentUpload)
	g.GET("/documents/:id/download", s.contractorDocumentDownload)
}

type contractorTenderList struct {
	Tenders []tender.Tender
	Now     time.Time
}

func (s *Server) contractorDashboard(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	filter := tenderFilterFromQuery(ctx)
	if filter.Status == "" {
		filter.Status = tender.StatusOpen
	}
	tenders, err := s.deps.Mkt.Tenders(ctx.Request().Context(), sess.Token, filter)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "contractor_dashboard", s.newPage(ctx, contractorTenderList{
		Tenders: tenders, Now: time.Now(),
	}))
}

type contractorTenderData struct {
	Tender  tender.Tender
	Balance billing.Balance
	Now     time.Time
}

// contractorTenderDetail shows the tender. Locked tenders render the teaser
// view with the unlock button and the current credit balance.
func (s *Server) contractorTenderDetail(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "tender not found")
	}

	t, err := s.deps.Mkt.TenderByID(ctx.Request().Context(), sess.Token, id)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	tender.SortItems(t.BOQItems)

	data := contractorTenderData{Tender: t, Now: time.Now()}
	if !t.Unlocked {
		balance, _, err := s.deps.Mkt.Billing(ctx.Request().Context(), sess.Token)
		if err != nil {
			return s.handleAPIError(ctx, err)
		}
		data.Balance = balance
	}
	return s.render(ctx, http.StatusOK, "contractor_tender", s.newPage(ctx, data))
}

func (s *Server) contractorUnlock(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "tender not found")
	}

	if _, err := s.deps.Mkt.UnlockTender(ctx.Request().Context(), sess.Token, id); err != nil {
		if isAuthErr(err) {
			return s.handleAPIError(ctx, err)
		}

		// insufficient credits comes back as a validation error; re-render
		// the teaser view with it
		t, tErr := s.deps.Mkt.TenderByID(ctx.Request().Context(), sess.Token, id)
		if tErr != nil {
			return s.handleAPIError(ctx, tErr)
		}
		data := contractorTenderData{Tender: t, Now: time.Now()}
		if balance, _, bErr := s.deps.Mkt.Billing(ctx.Request().Context(), sess.Token); bErr == nil {
			data.Balance = balance
		}
		return s.renderForm(ctx, "contractor_tender", s.newPage(ctx, data), err)
	}
	return ctx.Redirect(http.StatusFound, "/contractor/tenders/"+ctx.Param("id"))
}

// bidFormData is what the bid composition and confirmation templates render.
type bidFormData struct {
	Tender tender.Tender
	Form   *bid.Form
	Review bool
}

func (s *Server) contractorBidForm(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "tender not found")
	}

	t, err := s.deps.Mkt.TenderByID(ctx.Request().Context(), sess.Token, id)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	if !t.Open(time.Now()) {
		return ctx.Redirect(http.StatusFound, "/contractor/tenders/"+ctx.Param("id"))
	}
	if !t.Unlocked {
		return ctx.Redirect(http.StatusFound, "/contractor/tenders/"+ctx.Param("id"))
	}

	return s.render(ctx, http.StatusOK, "contractor_bid_form", s.newPage(ctx, bidFormData{
		Tender: t, Form: bid.NewForm(t),
	}))
}

// parseBidForm rebuilds the composition form from the posted fields. Per-row
// prices are posted as price_<itemID>; validation errors accumulate so the
// whole form is reported at once.
func (s *Server) parseBidForm(ctx echo.Context, t tender.Tender) (*bid.Form, error) {
	req := ctx.Request()
	if err := req.ParseMultipartForm(10 << 20); err != nil && err != http.ErrNotMultipart {
		return nil, errors.Wrap(err, "parsing bid form")
	}
	values := map[string][]string(req.PostForm)

	f := bid.NewForm(t)
	var flds []core.FieldError

	for i := range f.Lines {
		key := "price_" + strconv.Itoa(f.Lines[i].Item.ID)
		raw, ok := values[key]
		if !ok || len(raw) == 0 || raw[0] == "" {
			continue
		}
		price, err := strconv.ParseFloat(raw[0], 64)
		if err != nil {
			flds = append(flds, core.FieldError{Field: key, Error: "invalid price"})
			continue
		}
		if err := f.SetPrice(f.Lines[i].Item.ID, price); err != nil {
			flds = append(flds, fieldErrors(err)...)
		}
	}

	mode := firstValue(values, "discount_mode")
	if mode != "" {
		value, err := strconv.ParseFloat(firstValue(values, "discount_value"), 64)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "discount", Error: "invalid discount value"})
		} else if err := f.SetDiscount(mode, value); err != nil {
			flds = append(flds, fieldErrors(err)...)
		}
	}

	f.Proposal = core.CleanString(firstValue(values, "proposal"))

	if fh, err := ctx.FormFile("offer_file"); err == nil {
		file, err := fh.Open()
		if err != nil {
			return nil, errors.Wrap(err, "opening offer file")
		}
		content, err := ioutil.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return nil, errors.Wrap(err, "reading offer file")
		}
		f.OfferFile = &bid.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        content,
		}
	}

	if sig := strings.TrimSpace(firstValue(values, "signature")); sig != "" {
		upload, err := bid.DecodeSignatureDataURL(sig)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "signature", Error: "invalid signature image"})
		} else {
			f.Signature = upload
		}
	}

	if flds != nil {
		return f, core.NewValidationError(nil, flds...)
	}
	return f, nil
}

func firstValue(values map[string][]string, key string) string {
	if v, ok := values[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// fieldErrors unwraps a validation error into its field list.
func fieldErrors(err error) []core.FieldError {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Fields
	}
	return []core.FieldError{{Field: "form", Error: err.Error()}}
}

// contractorBidSave handles all three form actions: "save" persists the draft,
// "review" shows the confirmation page, "submit" runs the two-phase submit.
func (s *Server) contractorBidSave(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "tender not found")
	}

	t, err := s.deps.Mkt.TenderByID(ctx.Request().Context(), sess.Token, id)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}

	f, err := s.parseBidForm(ctx, t)
	if err != nil {
		if f == nil {
			return err
		}
		return s.renderForm(ctx, "contractor_bid_form", s.newPage(ctx, bidFormData{Tender: t, Form: f}), err)
	}

	switch action := ctx.FormValue("action"); action {
	case "review":
		if err := f.ValidateSubmit(); err != nil {
			return s.renderForm(ctx, "contractor_bid_form", s.newPage(ctx, bidFormData{Tender: t, Form: f}), err)
		}
		return s.render(ctx, http.StatusOK, "contractor_bid_confirm", s.newPage(ctx, bidFormData{
			Tender: t, Form: f, Review: true,
		}))
	case "submit":
		if _, err := s.deps.BidSvc.Submit(ctx.Request().Context(), sess.Token, f); err != nil {
			if isAuthErr(err) {
				return s.handleAPIError(ctx, err)
			}
			return s.renderForm(ctx, "contractor_bid_form", s.newPage(ctx, bidFormData{Tender: t, Form: f}), err)
		}
		return ctx.Redirect(http.StatusFound, "/contractor/bids")
	default: // save
		if _, err := s.deps.BidSvc.SaveDraft(ctx.Request().Context(), sess.Token, f); err != nil {
			if isAuthErr(err) {
				return s.handleAPIError(ctx, err)
			}
			return s.renderForm(ctx, "contractor_bid_form", s.newPage(ctx, bidFormData{Tender: t, Form: f}), err)
		}
		p := s.newPage(ctx, bidFormData{Tender: t, Form: f})
		p.Banner = "draft saved"
		return s.render(ctx, http.StatusOK, "contractor_bid_form", p)
	}
}

func (s *Server) contractorMyBids(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	bids, err := s.deps.Mkt.MyBids(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "contractor_bids", s.newPage(ctx, bids))
}

type billingData struct {
	Balance      billing.Balance
	Transactions []billing.Transaction
	Packs        []billing.CreditPack
}

func (s *Server) contractorBilling(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	balance, txs, err := s.deps.Mkt.Billing(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "contractor_billing", s.newPage(ctx, billingData{
		Balance: balance, Transactions: txs, Packs: billing.Packs,
	}))
}

func (s *Server) contractorPurchase(ctx echo.Context) error {
	sess, _ := contextSession(ctx)

	req := billing.PurchaseRequest{Pack: ctx.FormValue("pack")}
	if err := req.Validate(s.deps.Validate); err != nil {
		return s.renderForm(ctx, "contractor_billing", s.newPage(ctx, billingData{Packs: billing.Packs}), err)
	}

	if _, err := s.deps.Mkt.Purchase(ctx.Request().Context(), sess.Token, req); err != nil {
		if isAuthErr(err) {
			return s.handleAPIError(ctx, err)
		}
		return s.renderForm(ctx, "contractor_billing", s.newPage(ctx, billingData{Packs: billing.Packs}), err)
	}
	return ctx.Redirect(http.StatusFound, "/contractor/billing")
}

func (s *Server) contractorDocuments(ctx echo.Context) error {
	return s.documentList(ctx)
}

func (s *Server) contractorDocumentUpload(ctx echo.Context) error {
	return s.documentUpload(ctx, "/contractor/documents")
}

func (s *Server) contractorDocumentDownload(ctx echo.Context) error {
	return s.documentDownload(ctx)
}
