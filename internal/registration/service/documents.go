package service

import (
	"context"
	"fmt"
	"io"

	"jobstream/internal/registration/gate"
	"jobstream/internal/registration/models"
	"jobstream/internal/registration/tracer"
	dErrors "jobstream/pkg/domain-errors"
)

// allowedContentTypes is the upload allow-list.
var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

// UploadDocument stores a document for the registration. Every successful
// upload re-asserts the DOCUMENTS_UPLOADED status; the transition is
// idempotent, repeated uploads only add rows.
func (e *Engine) UploadDocument(ctx context.Context, registrationID string, file io.Reader, filename, contentType string, docType models.DocumentType) (_ *models.Document, err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanUploadDocument,
		tracer.String("registration_id", registrationID),
		tracer.String("content_type", contentType))
	defer func() { span.End(err) }()

	reg, err := e.store.FindByID(ctx, registrationID)
	if err != nil {
		return nil, asUnavailable(err, "load registration")
	}
	if err := gate.Permitted(reg, gate.OpUploadDocument); err != nil {
		e.countRejection(gate.OpUploadDocument, err)
		return nil, err
	}

	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, dErrors.New(dErrors.CodeUnsupportedFileType,
			fmt.Sprintf("content type %s not accepted, upload PDF, JPEG or PNG", contentType))
	}

	data, err := io.ReadAll(io.LimitReader(file, e.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read upload")
	}
	if int64(len(data)) > e.cfg.MaxUploadBytes {
		return nil, dErrors.New(dErrors.CodeFileTooLarge,
			fmt.Sprintf("upload exceeds the %d byte ceiling", e.cfg.MaxUploadBytes))
	}

	ref, err := e.storage.Store(ctx, data, filename, contentType)
	if err != nil {
		return nil, asUnavailable(err, "store document bytes")
	}

	doc := &models.Document{
		ID:             e.newID(),
		RegistrationID: registrationID,
		FileName:       filename,
		ContentType:    contentType,
		StorageRef:     ref,
		SizeBytes:      int64(len(data)),
		Type:           docType,
		Status:         models.DocumentPending,
		UploadedAt:     e.clock(),
	}
	if err := e.store.AddDocument(ctx, doc); err != nil {
		e.discardBlob(ctx, ref)
		return nil, asUnavailable(err, "persist document")
	}

	_, err = e.store.Update(ctx, registrationID, func(reg *models.Registration) error {
		if err := gate.Permitted(reg, gate.OpUploadDocument); err != nil {
			return err
		}
		reg.Steps.Mark(models.StepDocumentsUploaded)
		reg.AdvanceTo(models.StatusDocumentsUploaded)
		reg.UpdatedAt = e.clock()
		return nil
	})
	if err != nil {
		e.countRejection(gate.OpUploadDocument, err)
		return nil, asUnavailable(err, "record document upload")
	}
	return doc, nil
}

// Documents lists a registration's documents. When a URL signer is
// configured, each document carries a short-lived signed download URL.
func (e *Engine) Documents(ctx context.Context, registrationID string) ([]*models.Document, error) {
	if _, err := e.store.FindByID(ctx, registrationID); err != nil {
		return nil, asUnavailable(err, "load registration")
	}
	docs, err := e.store.ListDocuments(ctx, registrationID)
	if err != nil {
		return nil, asUnavailable(err, "list documents")
	}
	if e.signer != nil {
		for _, doc := range docs {
			url, err := e.signer.SignedURL(doc.StorageRef)
			if err != nil {
				e.logger.ErrorContext(ctx, "sign document url", "document_id", doc.ID, "error", err)
				continue
			}
			doc.SignedURL = url
		}
	}
	return docs, nil
}

// discardBlob removes stored bytes after a failed document persist. Best
// effort; an orphaned blob is logged, not surfaced.
func (e *Engine) discardBlob(ctx context.Context, ref string) {
	if err := e.storage.Delete(ctx, ref); err != nil {
		e.logger.ErrorContext(ctx, "discard orphaned blob", "ref", ref, "error", err)
	}
}
