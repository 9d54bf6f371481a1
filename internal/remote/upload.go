package remote

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/ashureev/agentdesk/internal/domain"
)

const fallbackUpload = "File upload failed"

// Multipart is a multipart/form-data body with one file part.
type Multipart struct {
	Fields      map[string]string
	FileField   string
	Filename    string
	ContentType string
	Content     []byte
}

func (m *Multipart) encode() (payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, m.FileField, m.Filename))
	ct := m.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return payload{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(m.Content); err != nil {
		return payload{}, fmt.Errorf("write file part: %w", err)
	}
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return payload{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return payload{}, fmt.Errorf("close multipart body: %w", err)
	}
	return payload{body: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

// UploadDocument sends a training document for the user's company.
func (s *Session) UploadDocument(ctx context.Context, doc domain.Document, userID, companyID string) (*domain.UploadResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	token, err := s.bearer(ctx)
	if err != nil {
		return nil, err
	}
	body := &Multipart{
		Fields:      map[string]string{"user_id": userID, "company_id": companyID},
		FileField:   "document",
		Filename:    doc.Filename,
		ContentType: domain.ContentTypePDF,
		Content:     doc.Content,
	}
	var result domain.UploadResult
	req := Request{Method: http.MethodPost, Path: "/upload", Body: body, Token: token, Fallback: fallbackUpload}
	if err := s.client.Do(ctx, s.store, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
