package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/service"
	"github.com/jiaranai/learninglab/internal/store"
)

type AnimationHandler struct {
	svc *service.AnimationService
}

func NewAnimationHandler(svc *service.AnimationService) *AnimationHandler {
	return &AnimationHandler{svc: svc}
}

type generateAnimationRequest struct {
	Prompt  string `json:"prompt"`
	Quality string `json:"quality,omitempty"`
}

func (h *AnimationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateAnimationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.svc.Generate(r.Context(), req.Prompt, domain.RenderQuality(req.Quality))
	if err != nil {
		if errors.Is(err, service.ErrInvalidPrompt) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to queue animation")
		return
	}

	writeJSON(w, http.StatusAccepted, task)
}

func (h *AnimationHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := h.svc.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *AnimationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := h.svc.Cancel(r.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "task not found")
		case errors.Is(err, service.ErrTaskNotCancellable):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel task")
		}
		return
	}

	writeJSON(w, http.StatusOK, task)
}

type sceneListResponse struct {
	Scenes []string `json:"scenes"`
	Count  int      `json:"count"`
}

func (h *AnimationHandler) ListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := h.svc.Scenes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list scenes")
		return
	}

	writeJSON(w, http.StatusOK, sceneListResponse{Scenes: scenes, Count: len(scenes)})
}

func (h *AnimationHandler) RenderScene(w http.ResponseWriter, r *http.Request) {
	sceneName := chi.URLParam(r, "scene")
	quality := domain.RenderQuality(r.URL.Query().Get("quality"))

	task, err := h.svc.RenderExisting(r.Context(), sceneName, quality)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPrompt):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, os.ErrNotExist):
			writeError(w, http.StatusNotFound, "scene not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to queue render")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, task)
}
