package domain

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
)

// MaxDocumentSize is the client-side upload limit.
const MaxDocumentSize = 10 << 20

// ContentTypePDF is the only accepted training document type.
const ContentTypePDF = "application/pdf"

// Document is a training document destined for POST /upload.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// IsPDF reports whether the document is a PDF, by declared type or by sniffing.
func (d Document) IsPDF() bool {
	ct := strings.ToLower(strings.TrimSpace(d.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == ContentTypePDF {
		return true
	}
	if ct == "" || ct == "application/octet-stream" {
		return bytes.HasPrefix(d.Content, []byte("%PDF-")) ||
			http.DetectContentType(d.Content) == ContentTypePDF
	}
	return false
}

// Validate enforces the PDF and size rules.
func (d Document) Validate() error {
	if len(d.Content) == 0 {
		return invalid("document is empty")
	}
	if !d.IsPDF() {
		return invalid("document must be a PDF")
	}
	if len(d.Content) > MaxDocumentSize {
		return invalid(fmt.Sprintf("document exceeds %d MB", MaxDocumentSize>>20))
	}
	return nil
}

// UploadResult is the body returned by POST /upload.
type UploadResult struct {
	Message    string `json:"message,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	URL        string `json:"url,omitempty"`
}
