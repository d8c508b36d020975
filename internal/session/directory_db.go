package session

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	dirQueryTimeout = 3 * time.Second
	pgUniqueCode    = "23505"
)

// PostgresDirectory keeps credential records in a users table. It backs the
// session store when the console runs against a real database instead of the
// demo directory.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Create(ctx context.Context, u User, password string) error {
	email := normalizeEmail(u.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dirQueryTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, pass_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, email, u.Name, hash, u.Role)

	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return ErrEmailExists
	}
	return err
}

func (d *PostgresDirectory) Verify(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)

	ctx, cancel := context.WithTimeout(ctx, dirQueryTimeout)
	defer cancel()

	var (
		u    User
		hash []byte
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, email, name, pass_hash, role
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Name, &hash, &u.Role)

	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(strings.TrimSpace(password))); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
