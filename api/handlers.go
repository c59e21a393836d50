/*
handlers.go - HTTP handlers for the expense ledger

PURPOSE:

	Exposes the service façade over REST. Handles JSON decoding, amount
	parsing, and the mapping of the domain error taxonomy onto HTTP status
	codes. No domain logic lives here.

ERROR MAPPING:

	400: invalid argument (blank string, malformed or over-precision amount)
	401: failed login
	404: user or group not found
	409: duplicate user, friend, group, or group member
	422: recoverable ledger guards (split too small, not friends,
	     receive too much, nothing owed)
	500: storage failures and session-layer anomalies

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/split-ledger/ledger"
	"github.com/warp/split-ledger/service"
)

// Handler holds the dependencies every endpoint needs.
type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{svc: svc, log: log}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.SignUp(r.Context(), req.Username, req.Password, req.FirstName, req.LastName); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !result.OK {
		writeJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		OK:                  true,
		FriendNotifications: notifList(result.FriendNotifications),
		GroupNotifications:  notifList(result.GroupNotifications),
	})
}

// =============================================================================
// FRIENDS
// =============================================================================

func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	var req AddFriendRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.AddFriend(r.Context(), req.Username, req.Friend); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Split(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.svc.Split(r.Context(), req.Payer, amount, req.Friend, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var req ReceiveRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.svc.Receive(r.Context(), req.Receiver, amount, req.Sender); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GROUPS
// =============================================================================

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.CreateGroup(r.Context(), req.Creator, req.Name, req.Participants...); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (h *Handler) SplitInGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupSplitRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	groupName := chi.URLParam(r, "name")
	if err := h.svc.SplitInGroup(r.Context(), req.Payer, amount, groupName, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReceiveInGroup(w http.ResponseWriter, r *http.Request) {
	var req ReceiveRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	groupName := chi.URLParam(r, "name")
	if err := h.svc.ReceiveInGroup(r.Context(), req.Receiver, amount, groupName, req.Sender); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// QUERIES
// =============================================================================

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "name")

	status, err := h.svc.Status(r.Context(), username)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: status})
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "name")

	payments, err := h.svc.Payments(r.Context(), username)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if payments == nil {
		payments = []ledger.Payment{}
	}
	writeJSON(w, http.StatusOK, PaymentsResponse{Payments: payments})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// PLUMBING
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func notifList(ns []ledger.Notification) []ledger.Notification {
	if ns == nil {
		return []ledger.Notification{}
	}
	return ns
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrAlreadyExists), errors.Is(err, ledger.ErrDuplicateMember):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case ledger.IsClientError(err):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case ledger.IsFatal(err):
		h.log.WithError(err).Error("internal failure")
		writeJSON(w, http.StatusInternalServerError,
			ErrorResponse{Error: "internal error, please contact an administrator"})
	default:
		h.log.WithError(err).Error("unclassified failure")
		writeJSON(w, http.StatusInternalServerError,
			ErrorResponse{Error: "internal error, please contact an administrator"})
	}
}
