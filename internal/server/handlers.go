package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formmaster/pro/internal/documents"
	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/fields"
	"github.com/formmaster/pro/internal/forms"
)

// handlers holds the wired services behind the REST routes.
type handlers struct {
	deps           Dependencies
	maxUploadBytes int64
}

// --- health ---

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB != nil {
		if err := h.deps.DB.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- field catalog ---

func (h *handlers) listFields(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Catalog.ListAllFields(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) groupedFields(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Catalog.GroupByTable(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) categorizedFields(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Catalog.GroupByCategory(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) searchFields(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.deps.Catalog.Search(r.Context(), q.Get("q"), q.Get("table"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) tableFields(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Catalog.ListFieldsForTable(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) fieldMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.deps.Catalog.FieldMetadata(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "column"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// --- compatibility ---

func (h *handlers) checkField(w http.ResponseWriter, r *http.Request) {
	var stored fields.Field
	if err := decodeJSON(r, &stored); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Checker.CheckField(r.Context(), stored))
}

// checkFormRequest asks whether a client's data still satisfies a template.
type checkFormRequest struct {
	TemplateID string         `json:"templateId"`
	ClientData map[string]any `json:"clientData"`
}

func (h *handlers) checkForm(w http.ResponseWriter, r *http.Request) {
	var req checkFormRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	tpl, err := h.deps.Templates.Get(r.Context(), req.TemplateID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, forms.CheckClientData(tpl, req.ClientData))
}

// switchRequest asks what happens to captured fields when a profile moves
// from one template to another.
type switchRequest struct {
	PreviousTemplateID string                  `json:"previousTemplateId"`
	NextTemplateID     string                  `json:"nextTemplateId"`
	CapturedFields     map[string]fields.Field `json:"capturedFields"`
}

func (h *handlers) switchReport(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	prev, err := h.deps.Templates.Get(r.Context(), req.PreviousTemplateID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	next, err := h.deps.Templates.Get(r.Context(), req.NextTemplateID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	live, err := h.liveFieldIndex(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, forms.CompareTemplates(prev, next, req.CapturedFields, live))
}

// liveFieldIndex snapshots the current catalog keyed by field ID.
func (h *handlers) liveFieldIndex(r *http.Request) (map[string]fields.Field, error) {
	all, err := h.deps.Catalog.ListAllFields(r.Context())
	if err != nil {
		return nil, err
	}
	live := make(map[string]fields.Field, len(all))
	for _, f := range all {
		live[f.ID] = f
	}
	return live, nil
}

// --- form templates ---

func (h *handlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Templates.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) getTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.deps.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tpl)
}

func (h *handlers) createTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl forms.Template
	if err := decodeJSON(r, &tpl); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := h.deps.Templates.Create(r.Context(), tpl)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *handlers) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl forms.Template
	if err := decodeJSON(r, &tpl); err != nil {
		respondError(w, r, err)
		return
	}
	tpl.ID = chi.URLParam(r, "id")

	updated, err := h.deps.Templates.Update(r.Context(), tpl)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// --- profiles ---

func (h *handlers) loadProfile(w http.ResponseWriter, r *http.Request) {
	data, err := h.deps.Profiles.Load(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, data)
}

func (h *handlers) saveProfile(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := decodeJSON(r, &data); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.deps.Profiles.Save(r.Context(), chi.URLParam(r, "clientID"), data); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// --- documents ---

func (h *handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Documents.List(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "multipart field 'file' is required", err))
		return
	}
	defer file.Close()

	doc, err := h.deps.Documents.Upload(r.Context(), documents.UploadRequest{
		ClientID:    chi.URLParam(r, "clientID"),
		DocType:     r.FormValue("docType"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

func (h *handlers) downloadDocument(w http.ResponseWriter, r *http.Request) {
	url, err := h.deps.Documents.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *handlers) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// --- admin ---

func (h *handlers) invalidateCache(w http.ResponseWriter, r *http.Request) {
	h.deps.Catalog.InvalidateCache()
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) performance(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.deps.Monitor.Snapshot())
}

// decodeJSON reads the request body into v, rejecting malformed payloads
// with an invalid-input error.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "malformed JSON body", err)
	}
	return nil
}
