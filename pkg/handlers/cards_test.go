package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/config"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/llm"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/ocr"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/services"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/services/workqueue"
)

// pngHeader is enough of a PNG for content sniffing to say image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

// newTestIngestion builds an IngestionService whose background tasks bail
// out before touching the repositories, so upload tests stay synchronous.
func newTestIngestion(t *testing.T, cards *mockCardRepo, contacts *mockContactRepo) *services.IngestionService {
	t.Helper()

	queue := workqueue.New(zap.NewNop())
	t.Cleanup(queue.Cancel)

	noScope := func(ctx context.Context, userID string) (context.Context, func(), error) {
		return nil, nil, errors.New("no database scope in handler tests")
	}

	return services.NewIngestionService(
		queue, cards, contacts,
		&ocr.MockExtractor{},
		services.NewContactExtractor(llm.NewMockClient(), zap.NewNop()),
		config.PipelineConfig{OCRConfidenceThreshold: 0.5, AIConfidenceThreshold: 0.15},
		noScope, zap.NewNop())
}

func newCardsHandler(t *testing.T, cards *mockCardRepo, uploads config.UploadConfig) (*CardsHandler, *mockContactRepo) {
	t.Helper()
	contacts := newMockContactRepo()
	return NewCardsHandler(cards, newTestIngestion(t, cards, contacts), uploads, zap.NewNop()), contacts
}

func uploadConfig(t *testing.T) config.UploadConfig {
	return config.UploadConfig{Dir: t.TempDir(), MaxSizeBytes: 10 * 1024 * 1024}
}

// multipartBody builds a multipart request body with one file field.
func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCardsHandlerUpload(t *testing.T) {
	t.Run("accepts a png and starts processing", func(t *testing.T) {
		cards := newMockCardRepo()
		h, _ := newCardsHandler(t, cards, uploadConfig(t))

		body, contentType := multipartBody(t, "card.png", pngHeader)
		r := httptest.NewRequest(http.MethodPost, "/api/business-cards/upload", body)
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		h.Upload(w, requestAs(r, "user-1"))

		require.Equal(t, http.StatusCreated, w.Code)

		var resp UploadResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "card.png", resp.Filename)
		assert.Equal(t, models.CardStatusProcessing, resp.Status)
		assert.NotEqual(t, uuid.Nil, resp.ID)

		require.Len(t, cards.cards, 1)
		stored := cards.cards[resp.ID]
		assert.Equal(t, models.CardStatusProcessing, stored.Status)
		assert.NotEmpty(t, stored.StoragePath)
	})

	t.Run("rejects unsupported content", func(t *testing.T) {
		cards := newMockCardRepo()
		h, _ := newCardsHandler(t, cards, uploadConfig(t))

		body, contentType := multipartBody(t, "card.txt", []byte("just plain text, no image"))
		r := httptest.NewRequest(http.MethodPost, "/api/business-cards/upload", body)
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		h.Upload(w, requestAs(r, "user-1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unsupported_file_type")
		assert.Empty(t, cards.cards)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		cards := newMockCardRepo()
		cfg := uploadConfig(t)
		cfg.MaxSizeBytes = 8
		h, _ := newCardsHandler(t, cards, cfg)

		body, contentType := multipartBody(t, "card.png", pngHeader)
		r := httptest.NewRequest(http.MethodPost, "/api/business-cards/upload", body)
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		h.Upload(w, requestAs(r, "user-1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file_too_large")
		assert.Empty(t, cards.cards)
	})

	t.Run("rejects missing file field", func(t *testing.T) {
		cards := newMockCardRepo()
		h, _ := newCardsHandler(t, cards, uploadConfig(t))

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("note", "no file here"))
		require.NoError(t, w.Close())

		r := httptest.NewRequest(http.MethodPost, "/api/business-cards/upload", &buf)
		r.Header.Set("Content-Type", w.FormDataContentType())
		rec := httptest.NewRecorder()
		h.Upload(rec, requestAs(r, "user-1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCardsHandlerStatus(t *testing.T) {
	conf := 0.42
	card := &models.Card{
		ID:            uuid.New(),
		Status:        models.CardStatusPendingVerification,
		ErrorMessage:  "OCR confidence 42% is below the auto-processing threshold",
		OCRConfidence: &conf,
		ExtractedData: &models.ExtractedContact{Name: "Maybe Jane"},
	}
	h, _ := newCardsHandler(t, newMockCardRepo(card), uploadConfig(t))

	r := httptest.NewRequest(http.MethodGet, "/api/business-cards/"+card.ID.String()+"/status", nil)
	r.SetPathValue("id", card.ID.String())
	w := httptest.NewRecorder()
	h.Status(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp CardStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.CardStatusPendingVerification, resp.Status)
	assert.Contains(t, resp.ErrorMessage, "OCR confidence")
	require.NotNil(t, resp.ExtractedData)
	assert.Equal(t, "Maybe Jane", resp.ExtractedData.Name)
}

func TestCardsHandlerVerify(t *testing.T) {
	t.Run("creates contact from reviewed fields", func(t *testing.T) {
		card := &models.Card{ID: uuid.New(), Status: models.CardStatusPendingVerification}
		cards := newMockCardRepo(card)
		h, contacts := newCardsHandler(t, cards, uploadConfig(t))

		body := `{"name": "Jane Doe", "company": "Acme", "industry": "technology"}`
		r := httptest.NewRequest(http.MethodPost, "/api/business-cards/"+card.ID.String()+"/verify",
			bytes.NewBufferString(body))
		r.SetPathValue("id", card.ID.String())
		w := httptest.NewRecorder()
		h.Verify(w, r)

		require.Equal(t, http.StatusOK, w.Code)

		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Contact)
		assert.Equal(t, "Jane Doe", resp.Contact.Name)
		require.NotNil(t, resp.Card)
		assert.Equal(t, models.CardStatusCompleted, resp.Card.Status)
		assert.Len(t, contacts.contacts, 1)

		stored := cards.cards[card.ID]
		assert.Equal(t, models.CardStatusCompleted, stored.Status)
		require.NotNil(t, stored.ContactID)
	})

	t.Run("recovers a failed card", func(t *testing.T) {
		card := &models.Card{
			ID:           uuid.New(),
			Status:       models.CardStatusFailed,
			ErrorMessage: "text extraction failed: engine crashed",
		}
		cards := newMockCardRepo(card)
		h, contacts := newCardsHandler(t, cards, uploadConfig(t))

		r := httptest.NewRequest(http.MethodPost, "/api/business-cards/"+card.ID.String()+"/verify",
			bytes.NewBufferString(`{"name": "Jane"}`))
		r.SetPathValue("id", card.ID.String())
		w := httptest.NewRecorder()
		h.Verify(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, contacts.contacts, 1)
		assert.Equal(t, models.CardStatusCompleted, cards.cards[card.ID].Status)
	})

	t.Run("rejects unknown industry", func(t *testing.T) {
		card := &models.Card{ID: uuid.New(), Status: models.CardStatusPendingVerification}
		h, _ := newCardsHandler(t, newMockCardRepo(card), uploadConfig(t))

		r := httptest.NewRequest(http.MethodPost, "/api/business-cards/"+card.ID.String()+"/verify",
			bytes.NewBufferString(`{"name": "Jane", "industry": "aerospace"}`))
		r.SetPathValue("id", card.ID.String())
		w := httptest.NewRecorder()
		h.Verify(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown card", func(t *testing.T) {
		h, _ := newCardsHandler(t, newMockCardRepo(), uploadConfig(t))

		missing := uuid.New()
		r := httptest.NewRequest(http.MethodPost, "/api/business-cards/"+missing.String()+"/verify",
			bytes.NewBufferString(`{"name": "Jane"}`))
		r.SetPathValue("id", missing.String())
		w := httptest.NewRecorder()
		h.Verify(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCardsHandlerRecent(t *testing.T) {
	cards := newMockCardRepo()
	for i := 0; i < 5; i++ {
		require.NoError(t, cards.Create(context.Background(), &models.Card{
			OriginalFilename: "c.jpg",
			Status:           models.CardStatusCompleted,
		}))
	}
	h, _ := newCardsHandler(t, cards, uploadConfig(t))

	r := httptest.NewRequest(http.MethodGet, "/api/business-cards/recent?page=2&limit=2", nil)
	w := httptest.NewRecorder()
	h.Recent(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp RecentCardsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.TotalCount)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.True(t, resp.HasPrev)
	assert.Len(t, resp.Cards, 2)
}
