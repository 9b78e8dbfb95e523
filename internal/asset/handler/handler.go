// Package handler wires the asset HTTP surface to the asset service.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"assettrack/internal/asset/models"
	"assettrack/internal/asset/service"
	"assettrack/internal/permission"
	"assettrack/internal/platform/middleware"
	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/platform/httputil"
	"assettrack/pkg/requestcontext"
)

// Handler wires asset endpoints to the asset service.
type Handler struct {
	service *service.Service
	gate    middleware.PermissionGate
	logger  *slog.Logger
}

// New constructs an asset handler with its dependencies.
func New(svc *service.Service, gate middleware.PermissionGate, logger *slog.Logger) *Handler {
	return &Handler{service: svc, gate: gate, logger: logger}
}

// Register mounts asset endpoints on the router. Reads need only an
// authenticated actor; mutations additionally pass the capability gate.
func (h *Handler) Register(r chi.Router) {
	write := middleware.RequirePermission(h.gate, permission.CapAssetWrite, h.logger)
	del := middleware.RequirePermission(h.gate, permission.CapAssetDelete, h.logger)
	move := middleware.RequirePermission(h.gate, permission.CapAssetMove, h.logger)

	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/summary", h.HandleSummary)
		r.With(write).Post("/", h.HandleCreate)

		r.Route("/{assetID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.With(write).Patch("/", h.HandleUpdate)
			r.With(del).Delete("/", h.HandleDelete)

			r.Get("/history", h.HandleHistory)
			r.Get("/moves", h.HandleListMoves)
			r.With(move).Post("/moves", h.HandleMove)

			r.Get("/custody", h.HandleListCustody)
			r.With(move).Post("/checkout", h.HandleCheckout)
			r.With(move).Post("/checkin", h.HandleCheckin)

			r.Get("/leases", h.HandleListLeases)
			r.With(write).Post("/leases", h.HandleCreateLease)
		})
	})
}

func assetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid asset id"))
		return uuid.Nil, false
	}
	return id, true
}

// HandleCreate handles POST /assets.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patch, ok := httputil.Decode[models.AssetPatch](w, r, h.logger)
	if !ok {
		return
	}

	asset, err := h.service.Create(ctx, patch)
	if err != nil {
		h.logger.WarnContext(ctx, "asset create failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, asset)
}

// HandleGet handles GET /assets/{assetID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	asset, err := h.service.Get(r.Context(), id, includeDeleted)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

// HandleUpdate handles PATCH /assets/{assetID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	patch, ok := httputil.Decode[models.AssetPatch](w, r, h.logger)
	if !ok {
		return
	}

	asset, events, err := h.service.Update(ctx, id, patch)
	if err != nil {
		h.logger.WarnContext(ctx, "asset update failed",
			"request_id", requestcontext.RequestID(ctx), "asset_id", id, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Asset  *models.Asset          `json:"asset"`
		Events []*models.HistoryEvent `json:"events"`
	}{asset, events})
}

// HandleDelete handles DELETE /assets/{assetID}. The default is a soft
// delete; ?hard=true removes the row while retaining history and moves.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	var err error
	if r.URL.Query().Get("hard") == "true" {
		err = h.service.HardDelete(r.Context(), id)
	} else {
		err = h.service.SoftDelete(r.Context(), id)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /assets.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r.URL.Query().Get)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.List(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleSummary handles GET /assets/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r.URL.Query().Get)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleHistory handles GET /assets/{assetID}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	events, err := h.service.History(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Events []*models.HistoryEvent `json:"events"`
	}{events})
}

// HandleMove handles POST /assets/{assetID}/moves.
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[MoveRequest](w, r, h.logger)
	if !ok {
		return
	}

	domainReq, err := req.Domain(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Move(ctx, domainReq)
	if err != nil {
		h.logger.WarnContext(ctx, "move failed",
			"request_id", requestcontext.RequestID(ctx),
			"asset_id", id, "kind", req.Kind, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleListMoves handles GET /assets/{assetID}/moves.
func (h *Handler) HandleListMoves(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListMoves(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Moves []*models.MoveRecord `json:"moves"`
	}{records})
}

// HandleCheckout handles POST /assets/{assetID}/checkout.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[CheckoutRequest](w, r, h.logger)
	if !ok {
		return
	}

	custody, err := h.service.Checkout(r.Context(), id, req.EmployeeID, dateOrZero(req.Date), req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, custody)
}

// HandleCheckin handles POST /assets/{assetID}/checkin.
func (h *Handler) HandleCheckin(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[CheckinRequest](w, r, h.logger)
	if !ok {
		return
	}

	custody, err := h.service.CheckIn(r.Context(), id, dateOrZero(req.Date), req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, custody)
}

// HandleListCustody handles GET /assets/{assetID}/custody.
func (h *Handler) HandleListCustody(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	rows, err := h.service.ListCustody(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Custody []*models.Custody `json:"custody"`
	}{rows})
}

// HandleCreateLease handles POST /assets/{assetID}/leases.
func (h *Handler) HandleCreateLease(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[LeaseRequest](w, r, h.logger)
	if !ok {
		return
	}

	var end *time.Time
	if req.End != nil {
		end = &req.End.Time
	}
	lease, err := h.service.CreateLease(r.Context(), id, req.Lessee, dateOrZero(req.Start), end)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, lease)
}

// HandleListLeases handles GET /assets/{assetID}/leases.
func (h *Handler) HandleListLeases(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	leases, err := h.service.ListLeases(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Leases []*models.Lease `json:"leases"`
	}{leases})
}
