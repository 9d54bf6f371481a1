package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/notify"
	"github.com/ashureev/agentdesk/internal/view"
)

// multipartOverhead is allowed on top of the document for form fields and boundaries.
const multipartOverhead = 1 << 20

// UploadDocument accepts a PDF in the "document" part and forwards it for the
// user's company once the "consent" field is set.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	dialog := view.NewUploadDialog(h.session(r), h.notifier(r), user)

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxDocumentSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.notifier(r).Notify(notify.KindError, "Please upload a PDF file", "PDF files only (max 10MB)")
			Error(w, http.StatusRequestEntityTooLarge, "Please upload a PDF file")
			return
		}
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Debug("Failed to remove multipart temp files", "error", err)
		}
	}()

	file, hdr, err := r.FormFile("document")
	if err != nil {
		Error(w, http.StatusBadRequest, "document is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, domain.MaxDocumentSize+1))
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read document")
		return
	}

	doc := domain.Document{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Content:     content,
	}
	if err := dialog.Select(doc); err != nil {
		JSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": "Please upload a PDF file", "state": dialog.State()})
		return
	}
	if err := dialog.Preview(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	consent, _ := strconv.ParseBool(r.FormValue("consent"))
	if !consent && r.FormValue("consent") == "on" {
		consent = true
	}
	dialog.SetConsent(consent)

	res, err := dialog.Submit(r.Context())
	switch {
	case errors.Is(err, view.ErrConsentRequired):
		JSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "state": dialog.State()})
		return
	case err != nil:
		h.failWith(w, r, err, "", map[string]any{"state": dialog.State()})
		return
	}

	h.logger.Info("Document uploaded", "company_id", user.CompanyID, "filename", doc.Filename, "size", len(content))
	JSON(w, http.StatusCreated, map[string]any{"result": res, "state": dialog.State()})
}
