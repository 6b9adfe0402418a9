package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	app_service "crypto-donation-tracker/internal/application/service"
	"crypto-donation-tracker/internal/domain/entity"
	domain_service "crypto-donation-tracker/internal/domain/service"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var trackerTemplate = template.Must(template.ParseFS(templateFS, "templates/tracker.html"))

// maxFormBody bounds posted form payloads
const maxFormBody = 64 << 10

// Handler serves the tracker JSON API and the server-rendered tracker page
type Handler struct {
	tracker       domain_service.TrackerService
	gate          *app_service.NotificationGate
	carousel      *app_service.Carousel
	share         *app_service.ShareService
	addresses     *app_service.AddressService
	contact       *app_service.ContactService
	beneficiary   string
	rowLimit      int
	emptyMessage  string
	manualRefresh bool
	cycleTimeout  time.Duration
	now           func() time.Time
	logger        *logger.Logger
}

// NewHandler creates the HTTP handlers
func NewHandler(
	cfg *config.Config,
	tracker domain_service.TrackerService,
	gate *app_service.NotificationGate,
	carousel *app_service.Carousel,
	share *app_service.ShareService,
	addresses *app_service.AddressService,
	contact *app_service.ContactService,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		tracker:       tracker,
		gate:          gate,
		carousel:      carousel,
		share:         share,
		addresses:     addresses,
		contact:       contact,
		beneficiary:   cfg.Campaign.Beneficiary,
		rowLimit:      cfg.Aggregator.TableRowLimit,
		emptyMessage:  cfg.Aggregator.TableEmptyMessage,
		manualRefresh: cfg.Aggregator.AllowManualRefresh,
		cycleTimeout:  cycleTimeout(cfg.Aggregator.RequestTimeout),
		now:           time.Now,
		logger:        logger.WithComponent("http-handler"),
	}
}

// cycleTimeout bounds one manual cycle: the price call followed by the
// balance and transaction calls of each source
func cycleTimeout(request time.Duration) time.Duration {
	if request <= 0 {
		return 0
	}
	return 3 * request
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/progress", h.progress)
	mux.HandleFunc("GET /api/transactions", h.transactions)
	mux.HandleFunc("GET /tracker", h.trackerPage)
	mux.HandleFunc("POST /api/refresh", h.refresh)
	mux.HandleFunc("GET /api/notifications/permission", h.permission)
	mux.HandleFunc("POST /api/notifications/permission", h.requestPermission)
	mux.HandleFunc("GET /api/testimonials/current", h.testimonial(h.carousel.Current))
	mux.HandleFunc("POST /api/testimonials/next", h.testimonial(h.carousel.Next))
	mux.HandleFunc("POST /api/testimonials/prev", h.testimonial(h.carousel.Prev))
	mux.HandleFunc("GET /api/share", h.shareLinks)
	mux.HandleFunc("GET /api/addresses", h.addressList)
	mux.HandleFunc("GET /donate/qr/{file}", h.qrCode)
	mux.HandleFunc("POST /api/forms/{kind}", h.submitForm)
	return mux
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Latest())
}

type transactionsResponse struct {
	Tab          string               `json:"tab"`
	Rows         []entity.Transaction `json:"rows"`
	EmptyMessage string               `json:"empty_message,omitempty"`
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	tab := tabParam(r)
	rows := domain_service.FilterTransactions(h.tracker.Latest().Transactions, tab, h.rowLimit)

	resp := transactionsResponse{Tab: tab, Rows: rows}
	if len(rows) == 0 {
		resp.EmptyMessage = h.emptyMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

type trackerView struct {
	Beneficiary  string
	Snapshot     *entity.Snapshot
	Tab          string
	Tabs         []string
	Rows         []entity.Transaction
	EmptyMessage string
}

func (h *Handler) trackerPage(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Latest()
	tab := tabParam(r)

	view := trackerView{
		Beneficiary:  h.beneficiary,
		Snapshot:     snapshot,
		Tab:          tab,
		Tabs:         []string{domain_service.TabAll},
		Rows:         domain_service.FilterTransactions(snapshot.Transactions, tab, h.rowLimit),
		EmptyMessage: h.emptyMessage,
	}
	for _, a := range h.addresses.Addresses() {
		view.Tabs = append(view.Tabs, strings.ToLower(string(a.Symbol)))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := trackerTemplate.Execute(w, view); err != nil {
		h.logger.Error("Failed to render tracker page", zap.Error(err))
	}
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if !h.manualRefresh {
		writeError(w, http.StatusForbidden, "manual refresh is disabled")
		return
	}

	// A disconnecting client must not abort the cycle it started
	ctx := context.WithoutCancel(r.Context())
	if h.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cycleTimeout)
		defer cancel()
	}

	snapshot, err := h.tracker.RunCycle(ctx)
	if err != nil {
		h.logger.Warn("Manual refresh failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":    err.Error(),
			"snapshot": snapshot,
		})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type permissionRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) permission(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state": string(h.gate.State())})
}

// requestPermission carries the audience's answer to the prompt. The answer
// only takes effect while the permission is undecided.
func (h *Handler) requestPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, ok := entity.ParsePermission(strings.ToLower(strings.TrimSpace(req.Answer)))
	if !ok {
		writeError(w, http.StatusBadRequest, "answer must be default, granted or denied")
		return
	}

	prompter := domain_service.PrompterFunc(func(context.Context) (entity.PermissionState, error) {
		return answer, nil
	})
	state, err := h.gate.Request(r.Context(), prompter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}

type testimonialResponse struct {
	entity.Testimonial
	Index int `json:"index"`
}

func (h *Handler) testimonial(step func() (entity.Testimonial, int, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, index, ok := step()
		if !ok {
			writeError(w, http.StatusNotFound, "no testimonials configured")
			return
		}
		writeJSON(w, http.StatusOK, testimonialResponse{Testimonial: t, Index: index})
	}
}

func (h *Handler) shareLinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.share.Links(h.now()))
}

type addressResponse struct {
	Symbol  entity.AssetSymbol `json:"symbol"`
	Address string             `json:"address"`
	QRURL   string             `json:"qr_url"`
}

func (h *Handler) addressList(w http.ResponseWriter, r *http.Request) {
	assets := h.addresses.Addresses()
	resp := make([]addressResponse, 0, len(assets))
	for _, a := range assets {
		resp = append(resp, addressResponse{
			Symbol:  a.Symbol,
			Address: a.Address,
			QRURL:   "/donate/qr/" + strings.ToLower(string(a.Symbol)) + ".png",
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) qrCode(w http.ResponseWriter, r *http.Request) {
	symbol, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}

	png, err := h.addresses.QRCode(symbol)
	if errors.Is(err, app_service.ErrUnknownAsset) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("Failed to render QR code", zap.String("asset", symbol), zap.Error(err))
		http.Error(w, "failed to render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(png)
}

func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	form.Kind = entity.FormKind(r.PathValue("kind"))

	text, err := h.contact.Submit(r.Context(), form)
	switch {
	case errors.Is(err, app_service.ErrUnknownForm):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app_service.ErrRelayDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, "Sorry, your message could not be sent. Please try again later.")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": text})
	}
}

// decodeForm accepts both JSON and classic form posts. Form posts use the
// page's field names, including donor-name.
func decodeForm(w http.ResponseWriter, r *http.Request) (entity.FormSubmission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)

	var form entity.FormSubmission
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&form)
		return form, err
	}

	if err := r.ParseForm(); err != nil {
		return form, err
	}
	form.Name = r.PostForm.Get("name")
	form.DonorName = r.PostForm.Get("donor-name")
	form.Email = r.PostForm.Get("email")
	form.Message = r.PostForm.Get("message")
	form.Amount = r.PostForm.Get("amount")
	return form, nil
}

func tabParam(r *http.Request) string {
	tab := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("tab")))
	if tab == "" {
		return domain_service.TabAll
	}
	return tab
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
