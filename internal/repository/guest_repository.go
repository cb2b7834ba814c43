package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/utils"
)

// GuestRepo provides data access to the guests table.
type GuestRepo struct {
	db *database.DB
}

func NewGuestRepo(db *database.DB) *GuestRepo { return &GuestRepo{db: db} }

const guestColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

// Create hashes password with the given bcrypt cost, inserts the guest
// and returns its ID.  The email is stored lower-cased.
func (r *GuestRepo) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO guests (name, email, password_hash, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		strings.TrimSpace(name), email, hash, role, now, now)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a guest by normalized email.
func (r *GuestRepo) GetByEmail(ctx context.Context, email string) (*model.Guest, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.get(ctx, `SELECT `+guestColumns+` FROM guests WHERE email = ? LIMIT 1`, email)
}

// GetByID fetches a guest by id.
func (r *GuestRepo) GetByID(ctx context.Context, id uint64) (*model.Guest, error) {
	return r.get(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ? LIMIT 1`, id)
}

func (r *GuestRepo) get(ctx context.Context, q string, arg any) (*model.Guest, error) {
	var g model.Guest
	err := r.db.QueryRowContext(ctx, q, arg).
		Scan(&g.ID, &g.Name, &g.Email, &g.PasswordHash, &g.Role, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
