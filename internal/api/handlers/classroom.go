package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/service"
	"github.com/jiaranai/learninglab/internal/store"
)

type ClassroomHandler struct {
	svc *service.ClassroomService
}

func NewClassroomHandler(svc *service.ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{svc: svc}
}

type startClassroomRequest struct {
	Topic  string `json:"topic"`
	UserID string `json:"user_id,omitempty"`
}

type startClassroomResponse struct {
	SessionID string           `json:"session_id"`
	Topic     string           `json:"topic"`
	Personas  []domain.Persona `json:"personas"`
	Turns     []domain.Turn    `json:"turns"`
}

func (h *ClassroomHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startClassroomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	sess, turns, err := h.svc.Start(r.Context(), req.Topic, req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start classroom session")
		return
	}

	writeJSON(w, http.StatusCreated, startClassroomResponse{
		SessionID: sess.ID,
		Topic:     sess.Topic,
		Personas:  sess.Personas,
		Turns:     turns,
	})
}

type classroomTurnRequest struct {
	Message string `json:"message"`
}

func (h *ClassroomHandler) NextTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req classroomTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	turn, err := h.svc.NextTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to advance session")
		return
	}

	writeJSON(w, http.StatusOK, turn)
}

type continueLectureRequest struct {
	SessionID string `json:"session_id"`
}

type lectureResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []domain.Turn `json:"turns"`
}

func (h *ClassroomHandler) ContinueLecture(w http.ResponseWriter, r *http.Request) {
	var req continueLectureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	turns, err := h.svc.ContinueLecture(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to continue lecture")
		return
	}

	writeJSON(w, http.StatusOK, lectureResponse{SessionID: req.SessionID, Turns: turns})
}

type setPhaseRequest struct {
	Phase string `json:"phase"`
}

func (h *ClassroomHandler) SetPhase(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req setPhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.svc.SetPhase(r.Context(), sessionID, domain.SessionPhase(req.Phase))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrInvalidPhase):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update session")
		}
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

func (h *ClassroomHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.svc.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}
