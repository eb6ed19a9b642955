package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	var req ToastRequest
	if !s.decode(w, r, &req) {
		return
	}
	content := req.ContentValue()
	if content == nil {
		writeError(w, http.StatusBadRequest, ErrNoContent)
		return
	}
	opts, err := req.Options()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id := s.stack.Show(content, opts)
	s.expire(id, req, true)
	s.logger.Debug("toast shown over http", "id", id)
	writeJSON(w, http.StatusAccepted, ShowResponse{ID: id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := s.stack.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("toast %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req ToastRequest
	if !s.decode(w, r, &req) {
		return
	}
	opts, err := req.Options()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")
	s.stack.Update(id, req.ContentValue(), opts)
	s.expire(id, req, false)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHide(w http.ResponseWriter, r *http.Request) {
	s.stack.Hide(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	s.stack.Destroy(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHideAll(w http.ResponseWriter, _ *http.Request) {
	s.stack.HideAll()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stack.Snapshot())
}

func (s *Server) handleVisible(w http.ResponseWriter, r *http.Request) {
	var req VisibleRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.stack.Toggle(req.Visible)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleUnfold(w http.ResponseWriter, r *http.Request) {
	var req UnfoldRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	if req.Unfolded == nil {
		s.stack.SwitchUnfolded()
	} else {
		s.stack.SetUnfolded(*req.Unfolded)
	}
	w.WriteHeader(http.StatusAccepted)
}

// expire arms the expirer for id. A show without a duration clears any timer
// left by a superseded toast with the same id; an update without one keeps it.
func (s *Server) expire(id string, req ToastRequest, show bool) {
	if s.expirer == nil {
		return
	}
	var d time.Duration
	switch {
	case req.Duration != nil:
		d = req.Duration.Duration()
	case !show:
		return
	}
	s.expirer.After(id, d)
}

// decode reads a JSON body into v, answering 400 on failure.
// Unknown fields are ignored.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		s.logger.Debug("malformed request", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("malformed request: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
