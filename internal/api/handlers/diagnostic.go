package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/service"
)

type DiagnosticHandler struct {
	svc      *service.DiagnosticService
	concepts *service.ConceptService
}

func NewDiagnosticHandler(svc *service.DiagnosticService, concepts *service.ConceptService) *DiagnosticHandler {
	return &DiagnosticHandler{svc: svc, concepts: concepts}
}

type uploadContentResponse struct {
	Content string `json:"content"`
	Length  int    `json:"length"`
}

// UploadContent accepts either a multipart file upload (field "file") or a
// raw text body and returns the extracted study material.
func (h *DiagnosticHandler) UploadContent(w http.ResponseWriter, r *http.Request) {
	filename, data, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}

	content, err := service.ExtractContent(filename, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType),
			errors.Is(err, service.ErrContentTooShort),
			errors.Is(err, service.ErrContentNotText):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrContentTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to extract content")
		}
		return
	}

	writeJSON(w, http.StatusOK, uploadContentResponse{Content: content, Length: len(content)})
}

func readUpload(r *http.Request) (string, []byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, service.MaxContentBytes+1))
		if err != nil {
			return "", nil, err
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, service.MaxContentBytes+1))
	if err != nil {
		return "", nil, err
	}
	return "", data, nil
}

type generateDiagnosticRequest struct {
	Content string `json:"content"`
	Count   int    `json:"count,omitempty"`
}

type generateDiagnosticResponse struct {
	Questions []domain.GeneratedQuestion `json:"questions"`
	Count     int                        `json:"count"`
}

func (h *DiagnosticHandler) GenerateDiagnostic(w http.ResponseWriter, r *http.Request) {
	var req generateDiagnosticRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	questions, err := h.svc.GenerateFromContent(r.Context(), req.Content, req.Count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate questions")
		return
	}

	writeJSON(w, http.StatusOK, generateDiagnosticResponse{Questions: questions, Count: len(questions)})
}

type diagnosticResponseResponse struct {
	UserID  string               `json:"user_id"`
	Concept string               `json:"concept"`
	Belief  domain.BeliefSummary `json:"belief"`
}

func (h *DiagnosticHandler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	var ev domain.ResponseEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.UserID == "" || ev.Concept == "" {
		writeError(w, http.StatusBadRequest, "user_id and concept are required")
		return
	}

	state, err := h.svc.RecordResponse(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, diagnosticResponseResponse{
		UserID:  ev.UserID,
		Concept: ev.Concept,
		Belief: domain.BeliefSummary{
			EstimatedAbility: state.Belief.Mean(),
			Uncertainty:      state.Belief.StdDev(),
			Attempts:         state.Attempts,
			Seen:             state.Attempts > 0,
		},
	})
}

func (h *DiagnosticHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	question, err := h.svc.NextQuestion(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNothingToAsk) {
			writeError(w, http.StatusNotFound, "no eligible concepts")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to generate question")
		return
	}

	writeJSON(w, http.StatusOK, question)
}

type nextBatchResponse struct {
	Questions []domain.QuestionItem `json:"questions"`
	Count     int                   `json:"count"`
}

func (h *DiagnosticHandler) NextBatch(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = parsed
	}

	questions, err := h.svc.NextBatch(r.Context(), userID, count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate questions")
		return
	}

	writeJSON(w, http.StatusOK, nextBatchResponse{Questions: questions, Count: len(questions)})
}

func (h *DiagnosticHandler) UserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	profile, err := h.svc.Profile(r.Context(), userID, 50)
	if err != nil {
		if errors.Is(err, service.ErrUnknownUser) {
			writeError(w, http.StatusNotFound, "no belief state for user")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

type conceptListResponse struct {
	Concepts []domain.Concept `json:"concepts"`
	Count    int              `json:"count"`
}

func (h *DiagnosticHandler) ListConcepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.concepts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list concepts")
		return
	}

	writeJSON(w, http.StatusOK, conceptListResponse{Concepts: concepts, Count: len(concepts)})
}
