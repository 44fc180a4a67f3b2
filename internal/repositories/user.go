package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

var _ models.Repository[*models.User] = (*UserRepository)(nil)

const userColumns = "id, sequence, subject, email, name, created_at, updated_at, deleted_at"

// UserRepository implements [models.Repository] for [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	user.SetID(id)
	user.SetSequence(sequence)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := shared.Rebind(r.db, `
		INSERT INTO users (id, sequence, subject, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.Exec(query, id, sequence, user.Subject(), user.Email(), user.Name(), user.CreatedAt().UTC(), user.UpdatedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := shared.Rebind(r.db, "SELECT "+userColumns+" FROM users WHERE id = ? AND deleted_at IS NULL")
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetBySubject retrieves a user by identity provider subject.
func (r *UserRepository) GetBySubject(subject string) (*models.User, error) {
	query := shared.Rebind(r.db, "SELECT "+userColumns+" FROM users WHERE subject = ? AND deleted_at IS NULL")
	return r.scanOne(r.db.QueryRow(query, subject), subject)
}

// FindOrCreate returns the user for a verified identity, creating one on first sight.
//
// The boolean reports whether a new user was created. Email and name are refreshed when the identity carries
// different values than the stored row.
func (r *UserRepository) FindOrCreate(identity models.Identity) (*models.User, bool, error) {
	if identity.Subject == "" {
		return nil, false, fmt.Errorf("%w: identity subject is required", shared.ErrInvalidInput)
	}

	user, err := r.GetBySubject(identity.Subject)
	switch {
	case err == nil:
		if (identity.Email != "" && identity.Email != user.Email()) || (identity.Name != "" && identity.Name != user.Name()) {
			if identity.Email != "" {
				user.SetEmail(identity.Email)
			}
			if identity.Name != "" {
				user.SetName(identity.Name)
			}
			if err := r.Update(user); err != nil {
				return nil, false, err
			}
		}
		return user, false, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, false, err
	}

	user = models.NewUser(0, identity.Subject, identity.Email, identity.Name)
	if err := r.Create(user); err != nil {
		// A concurrent request may have provisioned the same subject.
		if existing, getErr := r.GetBySubject(identity.Subject); getErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	user.SetUpdatedAt(ts)

	query := shared.Rebind(r.db, `
		UPDATE users
		SET email = ?, name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`)

	result, err := r.db.Exec(query, user.Email(), user.Name(), ts, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return affectedOne(result, "user", user.ID())
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	query := shared.Rebind(r.db, `
		UPDATE users
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`)

	result, err := r.db.Exec(query, now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return affectedOne(result, "user", id)
}

// List retrieves all users matching the given criteria, excluding soft-deleted users.
//
// Supported criteria are "email" and "subject".
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE deleted_at IS NULL"
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}
	if subject, ok := criteria["subject"].(string); ok && subject != "" {
		query += " AND subject = ?"
		args = append(args, subject)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(shared.Rebind(r.db, query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// Count returns the number of active users.
func (r *UserRepository) Count() (int64, error) {
	var n int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE deleted_at IS NULL").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) scanOne(row *sql.Row, key string) (*models.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		id        string
		sequence  int
		subject   string
		email     string
		name      string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	if err := s.Scan(&id, &sequence, &subject, &email, &name, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	user := models.NewUser(sequence, subject, email, name)
	user.SetID(id)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}
	return user, nil
}
