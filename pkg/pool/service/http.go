package service

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/poolparty/pool-backend/pkg/app/errors"
	apphttp "github.com/poolparty/pool-backend/pkg/app/http"
	"github.com/poolparty/pool-backend/pkg/auth"
	"github.com/poolparty/pool-backend/pkg/pool"
)

// Handler exposes the pool service over HTTP.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates the HTTP handler for the pool API.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the pool API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/pools", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.listPools))
		r.Get("/user-pools", apphttp.HandleError(h.userPools))
		r.Post("/", apphttp.HandleError(h.createPool))
		r.Get("/tx-status", apphttp.HandleError(h.txStatus))
		r.Post("/tx-reset", apphttp.HandleError(h.txReset))
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/join", apphttp.HandleError(h.joinPool))
			r.Post("/enable-deposit", h.transition("enable-deposit"))
			r.Post("/start", h.transition("start"))
			r.Post("/end", h.transition("end"))
		})
	})
}

func (h *Handler) listPools(w http.ResponseWriter, r *http.Request) error {
	chainID := h.chainID(r)
	result := h.svc.ListUpcoming(r.Context(), chainID)
	apphttp.WriteJSON(w, http.StatusOK, result)
	return nil
}

func (h *Handler) userPools(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	partition, ok := pool.ParsePartition(r.URL.Query().Get("status"))
	if !ok {
		return apperrors.BadRequestError(nil, "status must be one of upcoming, past, live")
	}

	result := h.svc.UserPools(r.Context(), wallet, partition, h.chainID(r))
	apphttp.WriteJSON(w, http.StatusOK, result)
	return nil
}

func (h *Handler) createPool(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	var req CreatePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid request body")
	}

	resp, err := h.svc.CreatePool(r.Context(), wallet, &req)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusAccepted, resp)
	return nil
}

func (h *Handler) joinPool(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	resp, err := h.svc.JoinPool(r.Context(), wallet, chi.URLParam(r, "id"), h.chainID(r))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusAccepted, resp)
	return nil
}

func (h *Handler) transition(action string) http.HandlerFunc {
	return apphttp.HandleError(func(w http.ResponseWriter, r *http.Request) error {
		wallet, ok := auth.WalletAddressFromContext(r.Context())
		if !ok {
			return apperrors.UnAuthorizedError(nil, "authentication required")
		}

		resp, err := h.svc.AdminTransition(r.Context(), wallet, chi.URLParam(r, "id"), action, h.chainID(r))
		if err != nil {
			return err
		}
		apphttp.WriteJSON(w, http.StatusAccepted, resp)
		return nil
	})
}

func (h *Handler) txStatus(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	apphttp.WriteJSON(w, http.StatusOK, h.svc.TxStatus(wallet, h.chainID(r)))
	return nil
}

func (h *Handler) txReset(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}

	if err := h.svc.TxReset(wallet, h.chainID(r)); err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "idle"})
	return nil
}

// chainID parses the optional chainId query parameter; zero selects the
// configured default chain.
func (h *Handler) chainID(r *http.Request) int64 {
	raw := r.URL.Query().Get("chainId")
	if raw == "" {
		return 0
	}
	chainID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return chainID
}
