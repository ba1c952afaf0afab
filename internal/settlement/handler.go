package settlement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pachtwerk/pachtwerk/internal/platform/httpx"
	"github.com/pachtwerk/pachtwerk/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	idem     *shared.IdempotencyStore
	validate *validator.Validate
}

// NewHandler builds the HTTP handler. idem may be nil; without it the
// Idempotency-Key header on generation requests is ignored.
func NewHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		idem:     idem,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes mounts the settlement period endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{periodID}", h.Get)
	r.Post("/{periodID}/calculate", h.Calculate)
	r.Post("/{periodID}/invoices", h.Generate)
	r.Post("/{periodID}/submit", h.SubmitForReview)
	r.Post("/{periodID}/review", h.Review)
	r.Post("/{periodID}/close", h.Close)
	r.Post("/{periodID}/cancel", h.Cancel)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "caller identity missing")
		return
	}
	var req CreatePeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.CreatePeriod(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "caller identity missing")
		return
	}
	filter := ListFilter{}
	if v := r.URL.Query().Get("park_id"); v != "" {
		parkID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid park_id")
			return
		}
		filter.ParkID = parkID
	}
	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
			return
		}
		filter.Year = year
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = Status(v)
	}
	periods, err := h.service.ListPeriods(r.Context(), id.TenantID, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndPeriod(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetPeriod(r.Context(), id.TenantID, periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndPeriod(w, r)
	if !ok {
		return
	}
	result, err := h.service.Calculate(r.Context(), id.TenantID, id.UserID, periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndPeriod(w, r)
	if !ok {
		return
	}

	// overrides are optional, an empty body runs with the stored figures
	var req GenerateRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), id.TenantID, idemKey, "settlement"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Conflict", "request with this idempotency key was already processed")
				return
			}
			h.respondError(w, err)
			return
		}
	}

	run, err := h.service.GenerateInvoices(r.Context(), id.TenantID, id.UserID, periodID, req)
	if err != nil {
		// free the key so the caller can retry after fixing the cause
		if idemKey != "" && h.idem != nil {
			if delErr := h.idem.Delete(r.Context(), id.TenantID, idemKey); delErr != nil {
				h.logger.Warn("idempotency key rollback failed", slog.String("error", delErr.Error()))
			}
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndPeriod(w, r)
	if !ok {
		return
	}
	p, err := h.service.SubmitForReview(r.Context(), id.TenantID, id.UserID, periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndPeriod(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Review(r.Context(), id.TenantID, id.UserID, periodID, req.Approve, req.Notes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndPeriod(w, r)
	if !ok {
		return
	}
	p, err := h.service.Close(r.Context(), id.TenantID, id.UserID, periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, periodID, ok := h.identityAndPeriod(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Cancel(r.Context(), id.TenantID, id.UserID, periodID, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) identityAndPeriod(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "caller identity missing")
		return shared.Identity{}, 0, false
	}
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period id")
		return shared.Identity{}, 0, false
	}
	return id, periodID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrStatusConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("request failed", slog.String("error", err.Error()))
		httpx.RespondError(w, err)
	}
}
