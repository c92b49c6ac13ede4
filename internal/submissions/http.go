package submissions

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"

	"namecollector/internal/logger"
)

const (
	MsgSubmitted     = "Thanks! Your name was submitted."
	MsgNameRequired  = "Name is required."
	MsgInvalidBody   = "Invalid request body."
	MsgInternalError = "Server error"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc: svc,
	}
}

type submitRequest struct {
	Name string `json:"name" form:"name"`
}

type submitResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type listResponse struct {
	OK   bool         `json:"ok"`
	Data []Submission `json:"data"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError renders the {error} envelope shared by every failing route.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req submitRequest
	if err := render.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		log.Debug("failed to decode submit request", "err", err)
		WriteError(w, r, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	sub, err := h.svc.Submit(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, ErrNameRequired) {
			WriteError(w, r, http.StatusBadRequest, MsgNameRequired)
			return
		}
		log.Error("failed to submit name", "err", err)
		WriteError(w, r, http.StatusInternalServerError, MsgInternalError)
		return
	}

	log.Info("name submitted", "submitted_at", sub.SubmittedAt)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, submitResponse{OK: true, Message: MsgSubmitted})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list submissions", "err", err)
		WriteError(w, r, http.StatusInternalServerError, MsgInternalError)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, listResponse{OK: true, Data: list})
}
