// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// reading data owned by providing subsystems.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"estate_portal_backend/internal/appointments/service"

	"github.com/jackc/pgx/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RowQuerier is the subset of pgxpool.Pool the directories use.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const queryProperty = `SELECT id, title, status FROM properties WHERE id = $1`

const queryUser = `SELECT id, email, full_name, role, is_active FROM users WHERE id = $1`

// PropertyDirectory reads the listing subsystem's properties table.
type PropertyDirectory struct {
	db RowQuerier
}

// NewPropertyDirectory creates a property directory backed by db.
func NewPropertyDirectory(db RowQuerier) *PropertyDirectory {
	return &PropertyDirectory{db: db}
}

// GetProperty returns the property or nil when it does not exist.
func (d *PropertyDirectory) GetProperty(ctx context.Context, propertyID int64) (*service.PropertyInfo, error) {
	var p service.PropertyInfo
	err := d.db.QueryRow(ctx, queryProperty, propertyID).Scan(&p.ID, &p.Title, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get property %d: %w", propertyID, err)
	}
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	return &p, nil
}

// PropertyTitle returns the title used in notifications, or "" when the
// property does not exist.
func (d *PropertyDirectory) PropertyTitle(ctx context.Context, propertyID int64) (string, error) {
	p, err := d.GetProperty(ctx, propertyID)
	if err != nil || p == nil {
		return "", err
	}
	return p.Title, nil
}

// AgentDirectory reads the identity subsystem's users table.
type AgentDirectory struct {
	db RowQuerier
}

// NewAgentDirectory creates an agent directory backed by db.
func NewAgentDirectory(db RowQuerier) *AgentDirectory {
	return &AgentDirectory{db: db}
}

// GetAgent returns the user or nil when it does not exist. Callers check Role.
func (d *AgentDirectory) GetAgent(ctx context.Context, userID int64) (*service.AgentInfo, error) {
	var a service.AgentInfo
	err := d.db.QueryRow(ctx, queryUser, userID).Scan(&a.ID, &a.Email, &a.FullName, &a.Role, &a.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	a.FullName = buildDisplayName(a.FullName, a.Email)
	return &a, nil
}

func buildDisplayName(fullName, email string) string {
	if full := strings.TrimSpace(fullName); full != "" {
		return full
	}
	return deriveNameFromEmail(email)
}

func deriveNameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	name = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(name)
	return cases.Title(language.Und).String(name)
}

var (
	_ service.PropertyDirectory = (*PropertyDirectory)(nil)
	_ service.AgentDirectory    = (*AgentDirectory)(nil)
)
