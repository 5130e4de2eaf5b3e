package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// UserRepository persists [models.User] accounts.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with generated ID and sequence.
//
// A taken username or email is reported as [shared.ErrConflict] naming the column.
func (r *UserRepository) Create(user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO users (id, sequence, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, user.Username, user.Email, user.PasswordHash, user.Created)
	if err != nil {
		if column, ok := uniqueViolation(err); ok {
			switch {
			case strings.HasSuffix(column, "username"):
				return shared.ErrUsernameTaken
			case strings.HasSuffix(column, "email"):
				return shared.ErrEmailTaken
			default:
				return fmt.Errorf("%w: user already exists", shared.ErrConflict)
			}
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = id
	user.Sequence = sequence
	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(id string) (*models.User, error) {
	return r.getBy("id", id)
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getBy("email", strings.TrimSpace(email))
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	return r.getBy("username", strings.TrimSpace(username))
}

func (r *UserRepository) getBy(column, value string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, sequence, username, email, password_hash, created_at
		FROM users
		WHERE %s = ?
	`, column)

	var user models.User
	err := r.db.QueryRow(query, value).Scan(
		&user.ID, &user.Sequence, &user.Username, &user.Email, &user.PasswordHash, &user.Created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s=%s", shared.ErrNotFound, column, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
