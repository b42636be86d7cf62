package services

import (
	"context"
	"fmt"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/repositories"
)

// Stats is the dashboard summary for one user.
type Stats struct {
	TotalContacts   int     `json:"total_contacts"`
	CardsProcessed  int     `json:"completed_cards"`
	IndustriesCount int     `json:"industries"`
	AccuracyRate    float64 `json:"accuracy"`
}

// StatsService assembles dashboard statistics from the repositories. The
// accuracy rate is a configured figure, not measured from the data.
type StatsService struct {
	contacts         repositories.ContactRepository
	cards            repositories.CardRepository
	reportedAccuracy float64
}

// NewStatsService creates the stats service.
func NewStatsService(contacts repositories.ContactRepository, cards repositories.CardRepository, reportedAccuracy float64) *StatsService {
	return &StatsService{
		contacts:         contacts,
		cards:            cards,
		reportedAccuracy: reportedAccuracy,
	}
}

// GetStats computes the user's summary from a user-scoped context.
func (s *StatsService) GetStats(ctx context.Context) (*Stats, error) {
	total, err := s.contacts.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}

	processed, err := s.cards.CountByStatus(ctx, models.CardStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to count processed cards: %w", err)
	}

	industries, err := s.contacts.CountDistinctIndustries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count industries: %w", err)
	}

	return &Stats{
		TotalContacts:   total,
		CardsProcessed:  processed,
		IndustriesCount: industries,
		AccuracyRate:    s.reportedAccuracy,
	}, nil
}
