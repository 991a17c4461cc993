package web

import (
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/bid"
	"github.com/appaltosmart/webclient/core/extraction"
	"github.com/appaltosmart/webclient/core/session"
	"github.com/appaltosmart/webclient/core/tender"
	"github.com/appaltosmart/webclient/services/marketplace"
)

func registerAdminRoutes(s *Server) {
	g := s.app.Group("/admin", s.sessionMiddleware(), s.requireRoles(session.RoleAdmin))

	g.GET("", s.adminDashboard)
	g.GET("/tenders/new", s.adminTenderNew)
	g.POST("/tenders", s.adminTenderCreate)
	g.GET("/tenders/:id", s.adminTenderDetail)
	g.GET("/tenders/:id/edit", s.adminTenderEdit)
	g.POST("/tenders/:id", s.adminTenderUpdate)
	g.POST("/tenders/:id/publish", s.adminTenderPublish)
	g.POST("/tenders/:id/extract", s.adminExtract)
	g.GET("/extractions/:handle", s.adminExtractionStatus)
	g.POST("/bids/:id/award", s.adminAwardBid)
	g.GET("/contractors", s.adminContractors)
	g.GET("/documents", s.adminDocuments)
	g.POST("/documents", s.adminDocumentUpload)
	g.GET("/documents/:id/download", s.adminDocumentDownload)
}

func (s *Server) adminDashboard(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	tenders, err := s.deps.Mkt.Tenders(ctx.Request().Context(), sess.Token, tenderFilterFromQuery(ctx))
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "admin_dashboard", s.newPage(ctx, tenders))
}

func tenderFilterFromQuery(ctx echo.Context) marketplace.TenderFilter {
	return marketplace.TenderFilter{
		Status: core.CleanString(ctx.QueryParam("status")),
		Search: core.CleanString(ctx.QueryParam("search")),
	}
}

// tenderFormData is what the tender create/edit templates render.
type tenderFormData struct {
	Tender  tender.Tender
	Buckets []string
	// merged extraction items waiting to be saved into the tender
	ExtractionHandle string
}

func (s *Server) adminTenderNew(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "admin_tender_form", s.newPage(ctx, tenderFormData{
		Buckets: tender.BudgetBuckets,
	}))
}

// parseTenderForm reads the tender form, including its parallel BOQ item rows.
func parseTenderForm(ctx echo.Context) (tender.NewTender, error) {
	var nt tender.NewTender
	if err := ctx.Request().ParseForm(); err != nil {
		return nt, errors.Wrap(err, "parsing tender form")
	}
	form := ctx.Request().PostForm

	nt.Title = form.Get("title")
	nt.Description = form.Get("description")
	nt.Location = form.Get("location")
	nt.Budget = form.Get("budget")
	if raw := form.Get("deadline"); raw != "" {
		deadline, err := time.ParseInLocation("2006-01-02T15:04", raw, time.Local)
		if err != nil {
			return nt, core.NewValidationError(nil, core.FieldError{Field: "deadline", Error: "invalid date"})
		}
		nt.Deadline = deadline
	}

	descs := form["item_description"]
	units := form["item_unit"]
	qtys := form["item_quantity"]
	types := form["item_type"]
	for i, desc := range descs {
		desc = core.CleanString(desc)
		if desc == "" {
			continue
		}
		item := tender.NewBOQItem{Description: desc, ItemType: tender.ItemUnitPriced, DisplayOrder: i + 1}
		if i < len(units) {
			item.Unit = core.CleanString(units[i])
		}
		if i < len(qtys) && qtys[i] != "" {
			qty, err := strconv.ParseFloat(qtys[i], 64)
			if err != nil || qty < 0 {
				return nt, core.NewValidationError(nil, core.FieldError{Field: "boq_items", Error: "invalid quantity"})
			}
			item.Quantity = qty
		}
		if i < len(types) && types[i] == tender.ItemLumpSum {
			item.ItemType = tender.ItemLumpSum
		}
		nt.Items = append(nt.Items, item)
	}
	return nt, nil
}

func (s *Server) adminTenderCreate(ctx echo.Context) error {
	sess, _ := contextSession(ctx)

	data, err := parseTenderForm(ctx)
	if err == nil {
		err = data.Validate(s.deps.Validate, s.deps.Translator)
	}
	if err != nil {
		return s.renderForm(ctx, "admin_tender_form", s.newPage(ctx, tenderFormData{Buckets: tender.BudgetBuckets}), err)
	}

	t, err := s.deps.Mkt.CreateTender(ctx.Request().Context(), sess.Token, data)
	if err != nil {
		if isAuthErr(err) {
			return s.handleAPIError(ctx, err)
		}
		return s.renderForm(ctx, "admin_tender_form", s.newPage(ctx, tenderFormData{Buckets: tender.BudgetBuckets}), err)
	}
	return ctx.Redirect(http.StatusFound, "/admin/tenders/"+strconv.Itoa(t.ID))
}

type adminTenderDetailData struct {
	Tender  tender.Tender
	Bids    []bid.Bid
	Buckets []string
	Now     time.Time
}

func (s *Server) adminTenderDetail(ctx echo.Context) error {
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

	bids, err := s.deps.Mkt.TenderBids(ctx.Request().Context(), sess.Token, id)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}

	return s.render(ctx, http.StatusOK, "admin_tender_detail", s.newPage(ctx, adminTenderDetailData{
		Tender: t, Bids: bids, Buckets: tender.BudgetBuckets, Now: time.Now(),
	}))
}

func (s *Server) adminTenderEdit(ctx echo.Context) error {
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

	return s.render(ctx, http.StatusOK, "admin_tender_form", s.newPage(ctx, tenderFormData{
		Tender: t, Buckets: tender.BudgetBuckets,
	}))
}

func (s *Server) adminTenderUpdate(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "tender not found")
	}

	nt, err := parseTenderForm(ctx)
	if err != nil {
		return s.renderForm(ctx, "admin_tender_form", s.newPage(ctx, tenderFormData{
			Tender: tender.Tender{ID: id, Title: nt.Title, Description: nt.Description, Location: nt.Location, Budget: nt.Budget},
			Buckets: tender.BudgetBuckets,
		}), err)
	}
	data := tender.UpdateTender{
		Title:       nt.Title,
		Description: nt.Description,
		Location:    nt.Location,
		Budget:      nt.Budget,
		Deadline:    nt.Deadline,
		Items:       nt.Items,
	}
	formData := tenderFormData{
		Tender: tender.Tender{ID: id, Title: nt.Title, Description: nt.Description, Location: nt.Location, Budget: nt.Budget, Deadline: nt.Deadline},
		Buckets: tender.BudgetBuckets,
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return s.renderForm(ctx, "admin_tender_form", s.newPage(ctx, formData), err)
	}

	if _, err := s.deps.Mkt.UpdateTender(ctx.Request().Context(), sess.Token, id, data); err != nil {
		if isAuthErr(err) {
			return s.handleAPIError(ctx, err)
		}
		return s.renderForm(ctx, "admin_tender_form", s.newPage(ctx, formData), err)
	}
	return ctx.Redirect(http.StatusFound, "/admin/tenders/"+ctx.Param("id"))
}

func (s *Server) adminTenderPublish(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "tender not found")
	}

	t, err := s.deps.Mkt.TenderByID(ctx.Request().Context(), sess.Token, id)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	if err := t.PublishReady(); err != nil {
		return err
	}

	if _, err := s.deps.Mkt.PublishTender(ctx.Request().Context(), sess.Token, id); err != nil {
		return s.handleAPIError(ctx, err)
	}
	return ctx.Redirect(http.StatusFound, "/admin/tenders/"+ctx.Param("id"))
}

// adminExtract uploads a BOQ PDF for extraction and starts the server-side
// watch; the status page then polls until the items are ready.
func (s *Server) adminExtract(ctx echo.Context) error {
	sess, _ := contextSession(ctx)

	fh, err := ctx.FormFile("pdf")
	if err != nil {
		tid, _ := strconv.Atoi(ctx.Param("id"))
		return s.renderForm(ctx, "admin_tender_form",
			s.newPage(ctx, tenderFormData{Tender: tender.Tender{ID: tid}, Buckets: tender.BudgetBuckets}),
			core.NewValidationError(nil, core.FieldError{Field: "pdf", Error: "a PDF file is required"}))
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded PDF")
	}
	defer func() { _ = f.Close() }()
	content, err := ioutil.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "reading uploaded PDF")
	}

	res, err := s.deps.Mkt.StartExtraction(ctx.Request().Context(), sess.Token, fh.Filename, content)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}

	handle := s.watchExtraction(sess.Token, res)
	return ctx.Redirect(http.StatusFound, "/admin/extractions/"+handle+"?tender="+ctx.Param("id"))
}

type extractionStatusData struct {
	Handle   string
	TenderID string
	State    watchState
	Merged   []tender.BOQItem
}

// adminExtractionStatus renders progress; once completed the extracted items
// are merged against the tender's manual BOQ rows.
func (s *Server) adminExtractionStatus(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	handle := ctx.Param("handle")

	st, ok := s.extractions.get(handle)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "extraction not found")
	}

	data := extractionStatusData{Handle: handle, TenderID: ctx.QueryParam("tender"), State: st}
	if st.Status == extraction.StatusCompleted {
		var existing []tender.BOQItem
		if tid, err := strconv.Atoi(data.TenderID); err == nil {
			t, err := s.deps.Mkt.TenderByID(ctx.Request().Context(), sess.Token, tid)
			if err != nil {
				return s.handleAPIError(ctx, err)
			}
			existing = t.BOQItems
		}
		data.Merged = extraction.MatchItems(st.Items, existing)
	}

	// fragment polling from the status page
	if ctx.Request().Header.Get("Accept") == "application/json" {
		return ctx.JSON(http.StatusOK, echo.Map{"status": st.Status, "error": st.Error})
	}
	return s.render(ctx, http.StatusOK, "admin_extraction", s.newPage(ctx, data))
}

func (s *Server) adminAwardBid(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "bid not found")
	}

	b, err := s.deps.Mkt.AwardBid(ctx.Request().Context(), sess.Token, id)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return ctx.Redirect(http.StatusFound, "/admin/tenders/"+strconv.Itoa(b.TenderID))
}

func (s *Server) adminContractors(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	contractors, err := s.deps.Mkt.Contractors(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "contractors", s.newPage(ctx, contractors))
}

func (s *Server) adminDocuments(ctx echo.Context) error {
	return s.documentList(ctx)
}

func (s *Server) adminDocumentUpload(ctx echo.Context) error {
	return s.documentUpload(ctx, "/admin/documents")
}

func (s *Server) adminDocumentDownload(ctx echo.Context) error {
	return s.documentDownload(ctx)
}

// shared document handlers (admin + contractor)

func (s *Server) documentList(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	docs, err := s.deps.Mkt.Documents(ctx.Request().Context(), sess.Token)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	return s.render(ctx, http.StatusOK, "documents", s.newPage(ctx, docs))
}

// documentUpload reads the posted file and forwards it base64-encoded inside
// JSON, the format the marketplace expects for document uploads.
func (s *Server) documentUpload(ctx echo.Context, backTo string) error {
	sess, _ := contextSession(ctx)

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded document")
	}
	defer func() { _ = f.Close() }()
	content, err := ioutil.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "reading uploaded document")
	}

	up := bid.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        content,
	}
	if _, err := s.deps.Mkt.UploadDocument(ctx.Request().Context(), sess.Token, up); err != nil {
		return s.handleAPIError(ctx, err)
	}
	return ctx.Redirect(http.StatusFound, backTo)
}

func (s *Server) documentDownload(ctx echo.Context) error {
	sess, _ := contextSession(ctx)
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}

	dl, err := s.deps.Mkt.DownloadDocument(ctx.Request().Context(), sess.Token, id)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+dl.Name+`"`)
	contentType := dl.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return ctx.Blob(http.StatusOK, contentType, dl.Data)
}
