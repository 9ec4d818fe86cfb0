package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobstream/internal/email"
	"jobstream/internal/registration/models"
	"jobstream/internal/registration/queue"
	"jobstream/internal/registration/service"
	"jobstream/internal/registration/store"
	"jobstream/internal/registration/token"
	"jobstream/internal/storage"
	"jobstream/internal/vault"
)

type fixture struct {
	server *httptest.Server
	store  *store.InMemoryStore
	blobs  *storage.InMemoryStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := store.NewInMemoryStore()
	blobs := storage.NewInMemoryStorage()
	signer := storage.NewURLSigner([]byte("test-secret"), "http://api.test/documents")

	engine, err := service.New(
		st,
		token.New(),
		blobs,
		email.NewLogSender(logger),
		vault.Noop{},
		queue.NewCounterAssigner(),
		service.Config{
			TokenTTL:        24 * time.Hour,
			RegistrationTTL: 7 * 24 * time.Hour,
			MaxUploadBytes:  1 << 20,
			DeniedDomains:   []string{"gmail.com"},
		},
		service.WithLogger(logger),
		service.WithURLSigner(signer),
	)
	require.NoError(t, err)

	router := NewRouter(NewHandler(engine, logger), logger, RouterConfig{
		Download: NewDownloadHandler(signer, blobs),
		ReadyChecks: map[string]HealthCheck{
			"store": func(context.Context) error { return nil },
		},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, store: st, blobs: blobs}
}

func (f *fixture) postJSON(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	return f.do(t, http.MethodPost, path, payload)
}

func (f *fixture) putJSON(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	return f.do(t, http.MethodPut, path, payload)
}

func (f *fixture) do(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(method, f.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := f.server.Client().Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (f *fixture) uploadPDF(t *testing.T, registrationID, filename string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 test document"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("document_type", string(models.DocumentBusinessRegistration)))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost,
		f.server.URL+"/registrations/"+registrationID+"/documents", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// emailToken reads the issued token straight from the store, standing in for
// the link the applicant would receive by mail.
func (f *fixture) emailToken(t *testing.T, registrationID string) string {
	t.Helper()
	reg, err := f.store.FindByID(context.Background(), registrationID)
	require.NoError(t, err)
	return reg.EmailToken
}

func TestFullWorkflowOverHTTP(t *testing.T) {
	f := newFixture(t)

	// Start.
	resp, body := f.postJSON(t, "/registrations", map[string]string{
		"company_email": "ops@acme-logistics.example",
		"contact_name":  "Dana Osei",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["registration_id"].(string)
	require.NotEmpty(t, id)

	// Verify email.
	resp, _ = f.postJSON(t, "/registrations/"+id+"/verify-email", map[string]string{
		"token": f.emailToken(t, id),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Company details.
	resp, _ = f.putJSON(t, "/registrations/"+id+"/details", map[string]string{
		"legal_name":          "Acme Logistics GmbH",
		"registration_number": "HRB 98765",
		"description":         strings.TrimSpace(strings.Repeat("freight ", models.MinDescriptionWords)),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Document upload.
	resp, docBody := f.uploadPDF(t, id, "extract.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", docBody["status"])

	// Financial step.
	resp, _ = f.putJSON(t, "/registrations/"+id+"/financial", map[string]string{
		"bank_name":           "Commerzbank",
		"iban":                "DE89370400440532013000",
		"account_holder_name": "Acme Logistics GmbH",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Submit for review.
	resp, submitBody := f.postJSON(t, "/registrations/"+id+"/submit", map[string]any{
		"terms_accepted": true,
		"stake_amount":   "5000",
		"wallet_address": "0x8ba1f109551bd432803012645ac136ddd64dba72",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PENDING_REVIEW", submitBody["status"])
	assert.Equal(t, float64(1), submitBody["queue_position"])

	// Status projection.
	resp, statusBody := f.get(t, "/registrations/"+id+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Awaiting review", statusBody["current_step"])

	// Admin approval.
	resp, _ = f.postJSON(t, "/registrations/"+id+"/decision", map[string]string{
		"decision": "APPROVE",
		"reviewer": "reviewer@jobstream.example",
		"notes":    "registry extract checks out",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, statusBody = f.get(t, "/registrations/"+id+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", statusBody["status"])
}

func TestErrorTranslation(t *testing.T) {
	f := newFixture(t)

	// Consumer email domain.
	resp, body := f.postJSON(t, "/registrations", map[string]string{
		"company_email": "someone@gmail.com",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_email", body["error"])

	// Unknown registration.
	resp, body = f.get(t, "/registrations/no-such-id/status")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])

	// Out-of-order step.
	started, startBody := f.postJSON(t, "/registrations", map[string]string{
		"company_email": "ops@acme-logistics.example",
	})
	require.Equal(t, http.StatusCreated, started.StatusCode)
	id := startBody["registration_id"].(string)

	resp, body = f.putJSON(t, "/registrations/"+id+"/details", map[string]string{
		"legal_name": "Acme", "description": "too short",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "step_out_of_order", body["error"])
}

func TestSignedDocumentDownload(t *testing.T) {
	f := newFixture(t)

	// Walk the flow far enough to upload a document.
	_, startBody := f.postJSON(t, "/registrations", map[string]string{
		"company_email": "ops@acme-logistics.example",
	})
	id := startBody["registration_id"].(string)
	resp, _ := f.postJSON(t, "/registrations/"+id+"/verify-email", map[string]string{
		"token": f.emailToken(t, id),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.putJSON(t, "/registrations/"+id+"/details", map[string]string{
		"description": strings.TrimSpace(strings.Repeat("freight ", models.MinDescriptionWords)),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.uploadPDF(t, id, "extract.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Listing returns a signed download URL.
	resp, listBody := f.get(t, "/registrations/"+id+"/documents")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	docs := listBody["documents"].([]any)
	require.Len(t, docs, 1)
	downloadURL := docs[0].(map[string]any)["download_url"].(string)
	_, tokenParam, found := strings.Cut(downloadURL, "?token=")
	require.True(t, found)

	// The local server honors the token.
	dlResp, err := f.server.Client().Get(f.server.URL + "/documents?token=" + tokenParam)
	require.NoError(t, err)
	defer dlResp.Body.Close()
	require.Equal(t, http.StatusOK, dlResp.StatusCode)
	assert.Equal(t, "application/pdf", dlResp.Header.Get("Content-Type"))
	data, err := io.ReadAll(dlResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 test document", string(data))

	// A tampered token is refused.
	dlResp, err = f.server.Client().Get(f.server.URL + "/documents?token=garbage")
	require.NoError(t, err)
	dlResp.Body.Close()
	assert.Equal(t, http.StatusGone, dlResp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = f.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
}
