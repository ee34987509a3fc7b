package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/store"
	"github.com/roach88/formstep/internal/theme"
)

type formResponse struct {
	Form     *form.Form             `json:"form"`
	Warnings []form.ValidationError `json:"warnings,omitempty"`
}

type validationResponse struct {
	Error    string                 `json:"error"`
	Findings []form.ValidationError `json:"findings"`
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	status := form.Status(r.URL.Query().Get("status"))
	if status != "" && !form.ValidStatuses[status] {
		writeError(w, http.StatusBadRequest, "unknown status "+string(status))
		return
	}
	forms, err := s.store.ListForms(r.Context(), status)
	if err != nil {
		s.internalError(w, "list forms", err)
		return
	}
	writeData(w, http.StatusOK, forms)
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	var f form.Form
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.ID == "" {
		f.ID = s.ids.Generate()
	}
	f.Normalize()

	warnings, ok := s.checkDefinition(w, &f)
	if !ok {
		return
	}

	err := s.store.CreateForm(r.Context(), &f)
	if errors.Is(err, store.ErrExists) {
		writeError(w, http.StatusConflict, "form "+f.ID+" already exists")
		return
	}
	if err != nil {
		s.internalError(w, "create form", err)
		return
	}

	s.logger.Info("form created", "form", f.ID, "status", f.Status)
	writeData(w, http.StatusCreated, formResponse{Form: &f, Warnings: warnings})
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadForm(w, r)
	if !ok {
		return
	}
	etag, err := formETag(f)
	if err != nil {
		s.internalError(w, "fingerprint form", err)
		return
	}
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeData(w, http.StatusOK, f)
}

func (s *Server) updateForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var f form.Form
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.ID != "" && f.ID != id {
		writeError(w, http.StatusBadRequest, "form id does not match path")
		return
	}
	f.ID = id
	f.Normalize()

	warnings, ok := s.checkDefinition(w, &f)
	if !ok {
		return
	}

	if match := r.Header.Get("If-Match"); match != "" {
		current, ok := s.loadForm(w, r)
		if !ok {
			return
		}
		etag, err := formETag(current)
		if err != nil {
			s.internalError(w, "fingerprint form", err)
			return
		}
		if match != etag {
			writeError(w, http.StatusPreconditionFailed, "form "+id+" changed since it was read")
			return
		}
	}

	err := s.store.UpdateForm(r.Context(), &f)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "form "+id+" not found")
		return
	}
	if err != nil {
		s.internalError(w, "update form", err)
		return
	}

	s.logger.Info("form updated", "form", id, "status", f.Status)
	if etag, err := formETag(&f); err == nil {
		w.Header().Set("ETag", etag)
	}
	writeData(w, http.StatusOK, formResponse{Form: &f, Warnings: warnings})
}

func (s *Server) deleteForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.DeleteForm(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "form "+id+" not found")
		return
	}
	if err != nil {
		s.internalError(w, "delete form", err)
		return
	}
	s.logger.Info("form deleted", "form", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) formStyle(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadForm(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, theme.Resolve(f.Theme))
}

// formQR renders a PNG QR code linking to the form's public page.
func (s *Server) formQR(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadForm(w, r)
	if !ok {
		return
	}
	if f.Status != form.StatusPublished {
		writeError(w, http.StatusConflict, "form "+f.ID+" is not published")
		return
	}

	png, err := qrcode.Encode(s.shareURL(f.ID), qrcode.Medium, 256)
	if err != nil {
		s.internalError(w, "encode qr", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	f, ok := s.loadForm(w, r)
	if !ok {
		return
	}
	subs, err := s.store.ListSubmissions(r.Context(), f.ID)
	if err != nil {
		s.internalError(w, "list submissions", err)
		return
	}
	writeData(w, http.StatusOK, subs)
}

// loadForm fetches the form named by the {id} path parameter. On failure
// it writes the response and returns false.
func (s *Server) loadForm(w http.ResponseWriter, r *http.Request) (*form.Form, bool) {
	id := chi.URLParam(r, "id")
	f, err := s.store.GetForm(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "form "+id+" not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, "get form", err)
		return nil, false
	}
	return f, true
}

// formETag is the quoted fingerprint of a stored definition.
func formETag(f *form.Form) (string, error) {
	fp, err := form.Fingerprint(f)
	if err != nil {
		return "", err
	}
	return `"` + fp + `"`, nil
}

// checkDefinition runs definition validation. Error findings are written
// as a 422 response; warnings are returned for the success payload.
func (s *Server) checkDefinition(w http.ResponseWriter, f *form.Form) ([]form.ValidationError, bool) {
	findings := form.Validate(f)
	if form.HasErrors(findings) {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Error:    "form definition is invalid",
			Findings: findings,
		})
		return nil, false
	}
	return findings, true
}

func (s *Server) shareURL(formID string) string {
	return s.publicURL + "/forms/" + formID
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, op+" failed")
}
