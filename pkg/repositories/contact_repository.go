// Package repositories implements user-scoped persistence over PostgreSQL.
// Every operation reads the UserScope from the context and filters by its
// owning-user identifier; cross-tenant access is a hard invariant violation.
package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/apperrors"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/database"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/models"
)

// ContactRepository defines the interface for contact data access.
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	Get(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	List(ctx context.Context, limit, offset int) ([]models.Contact, int, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Contact, error)
	Count(ctx context.Context) (int, error)
	CountDistinctIndustries(ctx context.Context) (int, error)
}

// contactRepository implements ContactRepository using PostgreSQL.
type contactRepository struct{}

// NewContactRepository creates a new contact repository.
func NewContactRepository() ContactRepository {
	return &contactRepository{}
}

const contactColumns = `id, user_id, name, email, phone, company, title, industry,
	address, website, notes, tags, event_id, created_at, updated_at`

// Create inserts a new contact owned by the scoped user.
func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	contact.UserID = scope.UserID

	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	if contact.Tags == nil {
		contact.Tags = []string{}
	}

	query := `
		INSERT INTO contacts (id, user_id, name, email, phone, company, title, industry,
			address, website, notes, tags, event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := scope.Conn.Exec(ctx, query,
		contact.ID,
		contact.UserID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Company,
		contact.Title,
		contact.Industry,
		contact.Address,
		contact.Website,
		contact.Notes,
		contact.Tags,
		contact.EventID,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

// Get retrieves a contact by ID, scoped to the owning user.
func (r *contactRepository) Get(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`

	row := scope.Conn.QueryRow(ctx, query, id, scope.UserID)
	contact, err := scanContact(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return contact, nil
}

// List returns the user's contacts newest-first with the total count.
func (r *contactRepository) List(ctx context.Context, limit, offset int) ([]models.Contact, int, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, 0, fmt.Errorf("no user scope in context")
	}

	var total int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM contacts WHERE user_id = $1`, scope.UserID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	query := `SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := scope.Conn.Query(ctx, query, scope.UserID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts, err := collectContacts(rows)
	if err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

// Update overwrites the contact's fields and refreshes updated_at. Returns
// ErrNotFound when the id/user pair matches no row.
func (r *contactRepository) Update(ctx context.Context, contact *models.Contact) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	contact.UpdatedAt = time.Now()
	if contact.Tags == nil {
		contact.Tags = []string{}
	}

	query := `
		UPDATE contacts
		SET name = $3, email = $4, phone = $5, company = $6, title = $7,
			industry = $8, address = $9, website = $10, notes = $11, tags = $12,
			event_id = $13, updated_at = $14
		WHERE id = $1 AND user_id = $2`

	result, err := scope.Conn.Exec(ctx, query,
		contact.ID,
		scope.UserID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Company,
		contact.Title,
		contact.Industry,
		contact.Address,
		contact.Website,
		contact.Notes,
		contact.Tags,
		contact.EventID,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a contact. Cards referencing it have their contact link
// cleared first; the cards themselves are never deleted.
func (r *contactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	_, err := scope.Conn.Exec(ctx,
		`UPDATE business_cards SET contact_id = NULL WHERE contact_id = $1 AND user_id = $2`,
		id, scope.UserID)
	if err != nil {
		return fmt.Errorf("failed to clear card references: %w", err)
	}

	result, err := scope.Conn.Exec(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, scope.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Search executes the interpreter's criteria tree, always conjoined with the
// owning-user filter. Unrecognized predicate nodes translate to nothing and
// are dropped; an empty tree returns all of the user's contacts.
func (r *contactRepository) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Contact, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	args := []any{scope.UserID}
	where := "user_id = $1"
	if criteria.Filter != nil {
		if frag := translatePredicate(criteria.Filter, &args); frag != "" {
			where += " AND " + frag
		}
	}

	orderBy := "created_at DESC"
	if s := criteria.Sort; s != nil && models.IsSearchableField(s.Field) {
		dir := "ASC"
		if s.Descending {
			dir = "DESC"
		}
		orderBy = s.Field + " " + dir
	}

	query := `SELECT ` + contactColumns + `
		FROM contacts
		WHERE ` + where + `
		ORDER BY ` + orderBy

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	defer rows.Close()

	return collectContacts(rows)
}

// Count returns the user's total contact count.
func (r *contactRepository) Count(ctx context.Context) (int, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no user scope in context")
	}

	var count int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM contacts WHERE user_id = $1`, scope.UserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

// CountDistinctIndustries returns the number of distinct non-empty
// industries across the user's contacts.
func (r *contactRepository) CountDistinctIndustries(ctx context.Context) (int, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no user scope in context")
	}

	var count int
	err := scope.Conn.QueryRow(ctx,
		`SELECT COUNT(DISTINCT industry) FROM contacts WHERE user_id = $1 AND industry <> ''`,
		scope.UserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count industries: %w", err)
	}
	return count, nil
}

// translatePredicate renders one predicate node to a SQL fragment, appending
// bind values to args. Returns "" for nodes that don't translate (unknown
// kind, unknown field, wrong operator for the field); callers drop those.
func translatePredicate(p *models.Predicate, args *[]any) string {
	switch p.Kind {
	case models.PredicateAnd, models.PredicateOr:
		joiner := " AND "
		if p.Kind == models.PredicateOr {
			joiner = " OR "
		}
		var frags []string
		for i := range p.Children {
			if frag := translatePredicate(&p.Children[i], args); frag != "" {
				frags = append(frags, frag)
			}
		}
		if len(frags) == 0 {
			return ""
		}
		return "(" + strings.Join(frags, joiner) + ")"

	case models.PredicateEq:
		if !isTextSearchField(p.Field) {
			return ""
		}
		*args = append(*args, p.Value)
		return fmt.Sprintf("LOWER(%s) = LOWER($%d)", p.Field, len(*args))

	case models.PredicateContains:
		if !isTextSearchField(p.Field) {
			return ""
		}
		*args = append(*args, "%"+p.Value+"%")
		return fmt.Sprintf("%s ILIKE $%d", p.Field, len(*args))

	case models.PredicateGte:
		if p.Field != models.SearchFieldCreatedAt {
			return ""
		}
		*args = append(*args, p.Value)
		return fmt.Sprintf("created_at >= $%d::timestamptz", len(*args))

	case models.PredicateLte:
		if p.Field != models.SearchFieldCreatedAt {
			return ""
		}
		*args = append(*args, p.Value)
		return fmt.Sprintf("created_at <= $%d::timestamptz", len(*args))

	default:
		return ""
	}
}

// isTextSearchField reports whether eq/contains may apply to the field.
func isTextSearchField(field string) bool {
	return models.IsSearchableField(field) && field != models.SearchFieldCreatedAt
}

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Company,
		&c.Title,
		&c.Industry,
		&c.Address,
		&c.Website,
		&c.Notes,
		&c.Tags,
		&c.EventID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectContacts(rows pgx.Rows) ([]models.Contact, error) {
	contacts := []models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}
	return contacts, nil
}

// Ensure contactRepository implements ContactRepository at compile time.
var _ ContactRepository = (*contactRepository)(nil)
