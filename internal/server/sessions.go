package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/formstep/internal/engine"
	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/store"
)

type sessionView struct {
	ID           string       `json:"id"`
	FormID       string       `json:"form_id"`
	Completed    bool         `json:"completed"`
	Pointer      int          `json:"pointer"`
	Step         engine.Step  `json:"step"`
	Answers      form.Answers `json:"answers"`
	SubmissionID string       `json:"submission_id,omitempty"`
	Pending      bool         `json:"pending_delivery,omitempty"`
}

type advanceResponse struct {
	Outcome engine.Outcome `json:"outcome"`
	Missing []string       `json:"missing,omitempty"`
	Session sessionView    `json:"session"`
}

type retreatResponse struct {
	Moved   bool        `json:"moved"`
	Session sessionView `json:"session"`
}

type answerRequest struct {
	Value json.RawMessage `json:"value"`
}

type toggleRequest struct {
	Option string `json:"option"`
}

// view snapshots a live session. Caller holds ls.mu.
func (s *Server) view(ls *liveSession) sessionView {
	return sessionView{
		ID:           ls.id,
		FormID:       ls.formID,
		Completed:    ls.session.Completed(),
		Pointer:      ls.session.Pointer(),
		Step:         ls.session.CurrentDisplay(),
		Answers:      ls.session.Answers(),
		SubmissionID: ls.submissionID,
		Pending:      ls.pending != nil,
	}
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadForm(w, r)
	if !ok {
		return
	}
	if f.Status != form.StatusPublished {
		writeError(w, http.StatusConflict, "form "+f.ID+" is not published")
		return
	}

	s.evictIdle()

	ls := &liveSession{id: s.ids.Generate(), formID: f.ID}
	ls.session = engine.NewSession(f, func(answers form.Answers) {
		ls.final = answers
	}, engine.WithLogger(s.logger.With("session", ls.id)))

	s.sessions.add(ls)
	s.metrics.sessionStarted(f.ID)
	s.logger.Info("session started", "form", f.ID, "session", ls.id)

	ls.mu.Lock()
	defer ls.mu.Unlock()
	writeData(w, http.StatusCreated, s.view(ls))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	writeData(w, http.StatusOK, s.view(ls))
}

func (s *Server) abandonSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	ls, ok := s.sessions.remove(sid)
	if !ok {
		writeError(w, http.StatusNotFound, "session "+sid+" not found")
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if !ls.session.Completed() {
		s.metrics.sessionEnded()
	}
	s.logger.Info("session abandoned", "form", ls.formID, "session", sid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Value) == 0 {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	v, err := form.DecodeValue(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mutateAnswers(w, r, func(sess *engine.Session, qid string) {
		sess.RecordAnswer(qid, v)
	})
}

func (s *Server) clearAnswer(w http.ResponseWriter, r *http.Request) {
	s.mutateAnswers(w, r, func(sess *engine.Session, qid string) {
		sess.ClearAnswer(qid)
	})
}

func (s *Server) toggleOption(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Option == "" {
		writeError(w, http.StatusBadRequest, "option is required")
		return
	}

	s.mutateAnswers(w, r, func(sess *engine.Session, qid string) {
		sess.ToggleOption(qid, req.Option)
	})
}

// mutateAnswers applies fn to the session named in the path, then stores
// the resolved pointer so a question hidden by the change is skipped.
func (s *Server) mutateAnswers(w http.ResponseWriter, r *http.Request, fn func(*engine.Session, string)) {
	ls, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	qid := chi.URLParam(r, "qid")

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.session.Completed() {
		writeError(w, http.StatusConflict, "session "+ls.id+" is completed")
		return
	}
	if ls.session.Form().QuestionByID(qid) == nil {
		writeError(w, http.StatusBadRequest, "unknown question "+qid)
		return
	}

	fn(ls.session, qid)
	ls.session.Sync()
	writeData(w, http.StatusOK, s.view(ls))
}

// advance moves the session forward. On completion the answers become a
// submission handed to the sink. A failed delivery stays pending and is
// retried by the next advance.
func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	var resp advanceResponse
	if ls.pending != nil {
		resp.Outcome = engine.OutcomeCompleted
	} else {
		resp.Outcome = ls.session.Advance()
		s.metrics.navigated(ls.formID, resp.Outcome)

		switch resp.Outcome {
		case engine.OutcomeBlocked:
			step := ls.session.CurrentDisplay()
			resp.Missing = engine.MissingRequired(step.Questions, ls.session.Answers())
		case engine.OutcomeCompleted:
			s.metrics.sessionEnded()
			ls.pending = &store.Submission{
				ID:          s.ids.Generate(),
				FormID:      ls.formID,
				SessionID:   ls.id,
				Answers:     ls.final,
				SubmittedAt: s.now(),
			}
		}
	}

	if ls.pending != nil {
		if err := s.deliver(r.Context(), ls); err != nil {
			writeError(w, http.StatusBadGateway, "submission delivery failed: "+err.Error())
			return
		}
	}

	resp.Session = s.view(ls)
	writeData(w, http.StatusOK, resp)
}

// deliver hands the pending submission to the sink. Caller holds ls.mu.
func (s *Server) deliver(ctx context.Context, ls *liveSession) error {
	sub := *ls.pending
	err := s.sink.Deliver(ctx, sub)
	s.metrics.submitted(ls.formID, err)
	if err != nil {
		s.logger.Error("submission delivery failed",
			"form", ls.formID,
			"session", ls.id,
			"submission", sub.ID,
			"error", err)
		return err
	}

	s.logger.Info("submission delivered", "form", ls.formID, "session", ls.id, "submission", sub.ID)
	ls.submissionID = sub.ID
	ls.pending = nil
	return nil
}

func (s *Server) retreat(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	moved := ls.session.Retreat()
	s.metrics.retreated(ls.formID, moved)
	writeData(w, http.StatusOK, retreatResponse{Moved: moved, Session: s.view(ls)})
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*liveSession, bool) {
	sid := chi.URLParam(r, "sid")
	ls, ok := s.sessions.get(sid)
	if !ok {
		writeError(w, http.StatusNotFound, "session "+sid+" not found")
		return nil, false
	}
	return ls, true
}
