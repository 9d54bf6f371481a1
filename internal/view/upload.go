package view

import (
	"context"
	"errors"
	"sync"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/notify"
)

// UploadStep is the page of the upload dialog.
type UploadStep string

const (
	StepUpload  UploadStep = "upload"
	StepPreview UploadStep = "preview"
)

const (
	msgNotPDF         = "Please upload a PDF file"
	msgUploaded       = "Document uploaded successfully"
	msgUploadFailed   = "Upload failed. Please try again."
	msgConsentMissing = "Please confirm you have the right to share this document"
)

var (
	ErrNotPDF          = errors.New("document is not a PDF")
	ErrNoFile          = errors.New("no document selected")
	ErrConsentRequired = errors.New("consent is required before uploading")
)

// Uploader sends a training document.
type Uploader interface {
	UploadDocument(ctx context.Context, doc domain.Document, userID, companyID string) (*domain.UploadResult, error)
}

// UploadState is a snapshot of the dialog.
type UploadState struct {
	Status   Status     `json:"status"`
	Step     UploadStep `json:"step"`
	Filename string     `json:"filename,omitempty"`
	Size     int        `json:"size,omitempty"`
	Consent  bool       `json:"consent"`
}

// UploadDialog selects a PDF, previews it, asks for consent and uploads it
// for the logged-in user's company. A failed upload keeps the selection so
// the user can retry.
type UploadDialog struct {
	svc    Uploader
	notify Notifier
	user   domain.Identity

	mu      sync.Mutex
	status  Status
	step    UploadStep
	doc     *domain.Document
	consent bool
}

// NewUploadDialog returns a dialog on the upload step.
func NewUploadDialog(svc Uploader, n Notifier, user domain.Identity) *UploadDialog {
	return &UploadDialog{
		svc:    svc,
		notify: notifierOrNop(n),
		user:   user,
		status: idle(),
		step:   StepUpload,
	}
}

// Select picks the document to upload. Anything that is not a PDF within the
// size limit is rejected and the previous selection is kept.
func (d *UploadDialog) Select(doc domain.Document) error {
	if err := doc.Validate(); err != nil {
		d.mu.Lock()
		d.status = Status{Phase: PhaseError, Message: msgNotPDF}
		d.mu.Unlock()
		d.notify.Notify(notify.KindError, msgNotPDF, err.Error())
		return ErrNotPDF
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc = &doc
	d.status = idle()
	return nil
}

// Preview moves to the preview step.
func (d *UploadDialog) Preview() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return ErrNoFile
	}
	d.step = StepPreview
	return nil
}

// Back returns to the upload step keeping the selection.
func (d *UploadDialog) Back() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.step = StepUpload
}

// SetConsent records the user's consent.
func (d *UploadDialog) SetConsent(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consent = ok
}

// Submit uploads the selected document. Nothing is sent without a selection
// and consent. On success the dialog resets.
func (d *UploadDialog) Submit(ctx context.Context) (*domain.UploadResult, error) {
	d.mu.Lock()
	doc, consent := d.doc, d.consent
	d.mu.Unlock()

	switch {
	case doc == nil:
		return nil, ErrNoFile
	case !consent:
		d.mu.Lock()
		d.status = Status{Phase: PhaseError, Message: msgConsentMissing}
		d.mu.Unlock()
		return nil, ErrConsentRequired
	case d.user.UserID == "" && d.user.CompanyID == "":
		d.mu.Lock()
		d.status = failed(ErrNotLoggedIn)
		d.mu.Unlock()
		return nil, ErrNotLoggedIn
	}

	d.mu.Lock()
	d.status = loading()
	d.mu.Unlock()

	res, err := d.svc.UploadDocument(ctx, *doc, d.user.UserID, d.user.CompanyID)
	if err != nil {
		d.mu.Lock()
		d.status = Status{Phase: PhaseError, Message: msgUploadFailed}
		d.mu.Unlock()
		d.notify.Notify(notify.KindError, msgUploadFailed, Message(err))
		return nil, err
	}

	d.mu.Lock()
	d.resetLocked()
	d.status = succeeded(msgUploaded)
	d.mu.Unlock()
	d.notify.Notify(notify.KindSuccess, msgUploaded, "")
	return res, nil
}

// Close discards the selection and returns to idle.
func (d *UploadDialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	d.status = idle()
}

// State returns a snapshot of the dialog.
func (d *UploadDialog) State() UploadState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := UploadState{Status: d.status, Step: d.step, Consent: d.consent}
	if d.doc != nil {
		st.Filename = d.doc.Filename
		st.Size = len(d.doc.Content)
	}
	return st
}

func (d *UploadDialog) resetLocked() {
	d.doc = nil
	d.step = StepUpload
	d.consent = false
}
