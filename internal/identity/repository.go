package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no identity matches the lookup key.
	ErrNotFound = errors.New("identity not found")

	// ErrDuplicatePhone indicates the phone number is already registered.
	ErrDuplicatePhone = errors.New("phone already registered")
)

// Repository persists identities.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	// UpdateStatus flips the verification status only when the stored status
	// still matches from, so racing updates cannot regress it.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	List(ctx context.Context, offset, limit int) ([]User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new identity.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO identities (id, phone, password_hash, role, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, user.Phone, user.PasswordHash, string(user.Role), string(user.Status), user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePhone
		}
		return err
	}
	return nil
}

// FindByPhone fetches an identity by its phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, phone, password_hash, role, status, created_at
        FROM identities WHERE phone = $1`, phone)
	return scanUser(row)
}

// FindByID fetches an identity by its identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, phone, password_hash, role, status, created_at
        FROM identities WHERE id = $1`, userID)
	return scanUser(row)
}

// UpdateStatus performs a conditional status transition.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE identities SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), userID, string(from))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns identities ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, phone, password_hash, role, status, created_at
        FROM identities ORDER BY created_at OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		id        uuid.UUID
		role      string
		status    string
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Phone, &user.PasswordHash, &role, &status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.Role = Role(role)
	user.Status = Status(status)
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
