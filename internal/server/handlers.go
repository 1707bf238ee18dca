package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/statembed/statembed/internal/qa"
	"github.com/statembed/statembed/internal/render"
)

type askResponse struct {
	Response string             `json:"response"`
	Rows     []render.JSONMatch `json:"rows"`
}

type nearestResponse struct {
	Rows []render.JSONMatch `json:"rows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		s.log.Warn("healthz write failed", "err", err)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("question")
	if q == "" {
		http.Error(w, "Missing question", http.StatusBadRequest)
		return
	}
	ans, err := s.svc.Answer(r.Context(), q)
	if errors.Is(err, qa.ErrMissingQuestion) {
		http.Error(w, "Missing question", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.fail(w, r, "Error answering question", err, http.StatusInternalServerError)
		return
	}
	s.log.Debug("answered", "prompt_tokens", ans.Prompt.Tokens, "rows", len(ans.Matches))
	WriteJSON(w, http.StatusOK, askResponse{
		Response: ans.Response,
		Rows:     render.ToJSONMatches(ans.Matches),
	})
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("question")
	if q == "" {
		http.Error(w, "Missing question", http.StatusBadRequest)
		return
	}
	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Invalid k", http.StatusBadRequest)
			return
		}
		k = n
	}
	matches, err := s.svc.Nearest(r.Context(), q, k)
	if errors.Is(err, qa.ErrMissingQuestion) {
		http.Error(w, "Missing question", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.fail(w, r, "Error finding nearest rows", err, http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, nearestResponse{Rows: render.ToJSONMatches(matches)})
}
