package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/apperrors"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/auth"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

// requestAs attaches authenticated claims for the given user, the way the
// auth middleware would.
func requestAs(r *http.Request, userID string) *http.Request {
	claims := &auth.Claims{}
	claims.Subject = userID
	return r.WithContext(auth.SetClaims(r.Context(), claims))
}

// mockContactRepo is an in-memory ContactRepository for handler tests.
type mockContactRepo struct {
	contacts map[uuid.UUID]*models.Contact

	listErr   error
	createErr error
	searchErr error

	searchCriteria *models.SearchCriteria
}

func newMockContactRepo(contacts ...*models.Contact) *mockContactRepo {
	m := &mockContactRepo{contacts: make(map[uuid.UUID]*models.Contact)}
	for _, c := range contacts {
		m.contacts[c.ID] = c
	}
	return m
}

func (m *mockContactRepo) Create(ctx context.Context, contact *models.Contact) error {
	if m.createErr != nil {
		return m.createErr
	}
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	m.contacts[contact.ID] = contact
	return nil
}

func (m *mockContactRepo) Get(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	contact, ok := m.contacts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *contact
	return &copied, nil
}

func (m *mockContactRepo) List(ctx context.Context, limit, offset int) ([]models.Contact, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	out := []models.Contact{}
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockContactRepo) Update(ctx context.Context, contact *models.Contact) error {
	if _, ok := m.contacts[contact.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.contacts[contact.ID] = contact
	return nil
}

func (m *mockContactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.contacts[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *mockContactRepo) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Contact, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	m.searchCriteria = &criteria
	out := []models.Contact{}
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockContactRepo) Count(ctx context.Context) (int, error) {
	return len(m.contacts), nil
}

func (m *mockContactRepo) CountDistinctIndustries(ctx context.Context) (int, error) {
	industries := map[string]bool{}
	for _, c := range m.contacts {
		if c.Industry != "" {
			industries[c.Industry] = true
		}
	}
	return len(industries), nil
}

// mockCardRepo is an in-memory CardRepository for handler tests.
type mockCardRepo struct {
	cards map[uuid.UUID]*models.Card

	createErr error
	listErr   error
}

func newMockCardRepo(cards ...*models.Card) *mockCardRepo {
	m := &mockCardRepo{cards: make(map[uuid.UUID]*models.Card)}
	for _, c := range cards {
		m.cards[c.ID] = c
	}
	return m
}

func (m *mockCardRepo) Create(ctx context.Context, card *models.Card) error {
	if m.createErr != nil {
		return m.createErr
	}
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	m.cards[card.ID] = card
	return nil
}

func (m *mockCardRepo) Get(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	card, ok := m.cards[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *mockCardRepo) ListRecent(ctx context.Context, limit, offset int) ([]models.Card, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	out := []models.Card{}
	for _, c := range m.cards {
		out = append(out, *c)
	}
	total := len(out)
	if offset > len(out) {
		out = nil
	} else {
		out = out[offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockCardRepo) SetExtractedText(ctx context.Context, id uuid.UUID, text string, ocrConfidence float64) error {
	card, ok := m.cards[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	card.ExtractedText = text
	card.OCRConfidence = &ocrConfidence
	return nil
}

func (m *mockCardRepo) SetExtractedData(ctx context.Context, id uuid.UUID, data *models.ExtractedContact, aiConfidence *float64) error {
	card, ok := m.cards[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	card.ExtractedData = data
	card.AIConfidence = aiConfidence
	return nil
}

func (m *mockCardRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.CardStatus, errorMessage string) error {
	card, ok := m.cards[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	card.Status = status
	card.ErrorMessage = errorMessage
	return nil
}

func (m *mockCardRepo) CompleteWithContact(ctx context.Context, id, contactID uuid.UUID) error {
	card, ok := m.cards[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	card.ContactID = &contactID
	card.Status = models.CardStatusCompleted
	card.ErrorMessage = ""
	return nil
}

func (m *mockCardRepo) CountByStatus(ctx context.Context, status models.CardStatus) (int, error) {
	count := 0
	for _, c := range m.cards {
		if c.Status == status {
			count++
		}
	}
	return count, nil
}

// mockEventRepo is an in-memory EventRepository for handler tests.
type mockEventRepo struct {
	events map[uuid.UUID]*models.Event
}

func newMockEventRepo(events ...*models.Event) *mockEventRepo {
	m := &mockEventRepo{events: make(map[uuid.UUID]*models.Event)}
	for _, e := range events {
		m.events[e.ID] = e
	}
	return m
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	m.events[event.ID] = event
	return nil
}

func (m *mockEventRepo) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, ok := m.events[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (m *mockEventRepo) List(ctx context.Context, limit, offset int) ([]models.Event, int, error) {
	out := []models.Event{}
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.Event) error {
	if _, ok := m.events[event.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.events[event.ID] = event
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.events[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

// mockInterpreter returns fixed criteria for search handler tests.
type mockInterpreter struct {
	criteria models.SearchCriteria
	calls    int
}

func (m *mockInterpreter) Interpret(ctx context.Context, query string) models.SearchCriteria {
	m.calls++
	return m.criteria
}
