package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

type PostgresDirectory struct {
	db *pgxpool.Pool
}

func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) BatchLookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Identity, error) {
	ids = dedupe(ids)
	out := make(map[uuid.UUID]models.Identity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := d.db.Query(ctx,
		`SELECT id, COALESCE(full_name, ''), COALESCE(avatar_url, ''), email
		 FROM users WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup identities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ident models.Identity
		if err := rows.Scan(&ident.SubjectID, &ident.DisplayName, &ident.AvatarURL, &ident.ContactAddress); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out[ident.SubjectID] = ident
	}
	return out, rows.Err()
}

func (d *PostgresDirectory) BatchLookupByContact(ctx context.Context, contacts []string) (map[string]models.Identity, error) {
	contacts = normalizeContacts(contacts)
	out := make(map[string]models.Identity, len(contacts))
	if len(contacts) == 0 {
		return out, nil
	}

	rows, err := d.db.Query(ctx,
		`SELECT id, COALESCE(full_name, ''), COALESCE(avatar_url, ''), email
		 FROM users WHERE lower(email) = ANY($1)`,
		contacts,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup identities by contact: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ident models.Identity
		if err := rows.Scan(&ident.SubjectID, &ident.DisplayName, &ident.AvatarURL, &ident.ContactAddress); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out[strings.ToLower(ident.ContactAddress)] = ident
	}
	return out, rows.Err()
}

// ResolveContact returns the user owning an e-mail address.
func (d *PostgresDirectory) ResolveContact(ctx context.Context, contact string) (uuid.UUID, bool) {
	var id uuid.UUID
	err := d.db.QueryRow(ctx, "SELECT id FROM users WHERE lower(email) = lower($1)", contact).Scan(&id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Warn("resolve contact failed", "error", err)
		}
		return uuid.Nil, false
	}
	return id, true
}
