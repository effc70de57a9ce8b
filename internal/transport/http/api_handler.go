package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"kiosk-quiz-service/internal/app"
	"kiosk-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// APIHandler exposes the quiz service to kiosks over plain HTTP.
type APIHandler struct {
	service *app.QuizService
	logger  *zap.Logger
}

func NewAPIHandler(service *app.QuizService, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{service: service, logger: logger}
}

// Routes mounts the API on mux.
func (h *APIHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /questions", h.questions)
	mux.HandleFunc("POST /register", h.register)
	mux.HandleFunc("POST /submit-quiz", h.submitQuiz)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
}

type statusPayload struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *APIHandler) questions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.Questions(r.Context())
	if err != nil {
		h.logger.Error("load questions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *APIHandler) register(w http.ResponseWriter, r *http.Request) {
	var form domain.Registration
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, statusPayload{Message: "Missing fields"})
		return
	}
	res, err := h.service.Register(r.Context(), form)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var submission domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		h.writeFailure(w, domain.ErrEmptySubmission)
		return
	}
	submission.Name = strings.TrimSpace(submission.Name)
	submission.Regno = strings.TrimSpace(submission.Regno)

	if _, err := h.service.SubmitQuiz(r.Context(), submission); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusPayload{Success: true, Redirect: "/leaderboard"})
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.logger.Error("load leaderboard", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *APIHandler) writeFailure(w http.ResponseWriter, err error) {
	if app.IsRejection(err) {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			status = http.StatusConflict
		}
		writeJSON(w, status, statusPayload{Message: app.RejectionMessage(err)})
		return
	}
	h.logger.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, statusPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
