package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jobstream/internal/registration/models"
	"jobstream/internal/storage"
	dErrors "jobstream/pkg/domain-errors"
)

// maxMultipartMemory bounds how much of an upload chi keeps in memory before
// spilling to disk. The engine enforces the real size ceiling.
const maxMultipartMemory = 4 << 20

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "expected multipart form upload"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "missing file field"))
		return
	}
	defer file.Close()

	docType := models.DocumentType(r.FormValue("document_type"))
	if docType == "" {
		docType = models.DocumentOther
	}

	doc, err := h.service.UploadDocument(r.Context(), chi.URLParam(r, "id"),
		file, header.Filename, header.Header.Get("Content-Type"), docType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentView(doc))
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.Documents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		views = append(views, documentView(doc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": views})
}

func documentView(doc *models.Document) map[string]any {
	view := map[string]any{
		"id":           doc.ID,
		"file_name":    doc.FileName,
		"content_type": doc.ContentType,
		"size_bytes":   doc.SizeBytes,
		"type":         string(doc.Type),
		"status":       string(doc.Status),
		"uploaded_at":  doc.UploadedAt.Format(time.RFC3339),
	}
	if doc.SignedURL != "" {
		view["download_url"] = doc.SignedURL
	}
	return view
}

// DownloadHandler serves document bytes against a signed URL token. It lives
// apart from Handler because it needs the blob store and signer, not the
// engine.
type DownloadHandler struct {
	signer *storage.URLSigner
	blobs  storage.Storage
}

// NewDownloadHandler constructs the signed-download endpoint.
func NewDownloadHandler(signer *storage.URLSigner, blobs storage.Storage) *DownloadHandler {
	return &DownloadHandler{signer: signer, blobs: blobs}
}

func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "missing download token"))
		return
	}
	ref, err := h.signer.Verify(token)
	if err != nil {
		writeError(w, err)
		return
	}
	obj, err := h.blobs.Fetch(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+obj.Filename+`"`)
	_, _ = w.Write(obj.Data)
}
