package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/apperrors"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

// mockCardRepository is an in-memory CardRepository for pipeline tests.
type mockCardRepository struct {
	cards map[uuid.UUID]*models.Card

	getErr              error
	setStatusErr        error
	setExtractedTextErr error
	setExtractedDataErr error
	completeErr         error

	setExtractedDataCalls int
	countByStatus         map[models.CardStatus]int
}

func newMockCardRepository(cards ...*models.Card) *mockCardRepository {
	m := &mockCardRepository{cards: make(map[uuid.UUID]*models.Card)}
	for _, c := range cards {
		m.cards[c.ID] = c
	}
	return m
}

func (m *mockCardRepository) Create(ctx context.Context, card *models.Card) error {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	m.cards[card.ID] = card
	return nil
}

func (m *mockCardRepository) Get(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	card, ok := m.cards[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *mockCardRepository) ListRecent(ctx context.Context, limit, offset int) ([]models.Card, int, error) {
	out := []models.Card{}
	for _, c := range m.cards {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCardRepository) SetExtractedText(ctx context.Context, id uuid.UUID, text string, ocrConfidence float64) error {
	if m.setExtractedTextErr != nil {
		return m.setExtractedTextErr
	}
	card, ok := m.cards[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	card.ExtractedText = text
	card.OCRConfidence = &ocrConfidence
	return nil
}

func (m *mockCardRepository) SetExtractedData(ctx context.Context, id uuid.UUID, data *models.ExtractedContact, aiConfidence *float64) error {
	m.setExtractedDataCalls++
	if m.setExtractedDataErr != nil {
		return m.setExtractedDataErr
	}
	card, ok := m.cards[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	card.ExtractedData = data
	card.AIConfidence = aiConfidence
	return nil
}

func (m *mockCardRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.CardStatus, errorMessage string) error {
	if m.setStatusErr != nil {
		return m.setStatusErr
	}
	card, ok := m.cards[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	card.Status = status
	card.ErrorMessage = errorMessage
	return nil
}

func (m *mockCardRepository) CompleteWithContact(ctx context.Context, id, contactID uuid.UUID) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	card, ok := m.cards[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	card.ContactID = &contactID
	card.Status = models.CardStatusCompleted
	card.ErrorMessage = ""
	return nil
}

func (m *mockCardRepository) CountByStatus(ctx context.Context, status models.CardStatus) (int, error) {
	if m.countByStatus != nil {
		return m.countByStatus[status], nil
	}
	count := 0
	for _, c := range m.cards {
		if c.Status == status {
			count++
		}
	}
	return count, nil
}

// mockContactRepository is an in-memory ContactRepository.
type mockContactRepository struct {
	contacts map[uuid.UUID]*models.Contact

	createErr   error
	createCalls int

	countErr        error
	count           int
	industriesCount int
}

func newMockContactRepository() *mockContactRepository {
	return &mockContactRepository{contacts: make(map[uuid.UUID]*models.Contact)}
}

func (m *mockContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	m.contacts[contact.ID] = contact
	return nil
}

func (m *mockContactRepository) Get(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	contact, ok := m.contacts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return contact, nil
}

func (m *mockContactRepository) List(ctx context.Context, limit, offset int) ([]models.Contact, int, error) {
	out := []models.Contact{}
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	if _, ok := m.contacts[contact.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.contacts[contact.ID] = contact
	return nil
}

func (m *mockContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.contacts[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *mockContactRepository) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Contact, error) {
	out := []models.Contact{}
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockContactRepository) Count(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	if m.count > 0 {
		return m.count, nil
	}
	return len(m.contacts), nil
}

func (m *mockContactRepository) CountDistinctIndustries(ctx context.Context) (int, error) {
	return m.industriesCount, nil
}

// passthroughUserContext is a UserContextFunc that hands back the context
// unchanged; the mocks don't need a database scope.
func passthroughUserContext(ctx context.Context, userID string) (context.Context, func(), error) {
	return ctx, func() {}, nil
}
