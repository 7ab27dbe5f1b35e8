package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	goGate "github.com/InsightGuard/goGate"
)

// ErrDuplicate reports a unique constraint violation on insert.
var ErrDuplicate = errors.New("duplicate row")

const uniqueViolationCode = "23505"

// Directory is a PostgreSQL-backed [goGate.UserDirectory].
type Directory struct {
	db *sql.DB
}

// NewDirectory creates a [Directory] on top of db.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

const userColumns = `id, username, email, hashed_password, full_name, company, created_at`

func (d *Directory) findOne(ctx context.Context, where string, arg any) (goGate.UserRecord, bool, error) {
	var (
		user     goGate.UserRecord
		fullName sql.NullString
		company  sql.NullString
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg,
	).Scan(&user.ID, &user.Username, &user.Email, &user.HashedPassword, &fullName, &company, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goGate.UserRecord{}, false, nil
		}
		return goGate.UserRecord{}, false, fmt.Errorf("query user: %w", err)
	}

	user.FullName = fullName.String
	user.Company = company.String
	return user, true, nil
}

// FindByUsername describes the findbyusername operation and its observable behavior.
func (d *Directory) FindByUsername(ctx context.Context, username string) (goGate.UserRecord, bool, error) {
	return d.findOne(ctx, `username = $1`, username)
}

// FindByEmail describes the findbyemail operation and its observable behavior.
func (d *Directory) FindByEmail(ctx context.Context, email string) (goGate.UserRecord, bool, error) {
	return d.findOne(ctx, `email = $1`, email)
}

// FindByID describes the findbyid operation and its observable behavior.
func (d *Directory) FindByID(ctx context.Context, id string) (goGate.UserRecord, bool, error) {
	return d.findOne(ctx, `id = $1`, id)
}

// CreateUser describes the createuser operation and its observable behavior.
//
// CreateUser may return an error when input validation, dependency calls, or security checks fail.
func (d *Directory) CreateUser(ctx context.Context, input goGate.CreateUserInput) (goGate.UserRecord, error) {
	record := goGate.UserRecord{
		ID:             uuid.NewString(),
		Username:       input.Username,
		Email:          input.Email,
		HashedPassword: input.HashedPassword,
		FullName:       input.FullName,
		Company:        input.Company,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, hashed_password, full_name, company, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, record.ID, record.Username, record.Email, record.HashedPassword,
		nullable(record.FullName), nullable(record.Company), record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return goGate.UserRecord{}, ErrDuplicate
		}
		return goGate.UserRecord{}, fmt.Errorf("insert user: %w", err)
	}

	return record, nil
}

// UpdateUser describes the updateuser operation and its observable behavior.
//
// Nil input fields keep the stored column value via COALESCE.
func (d *Directory) UpdateUser(ctx context.Context, id string, input goGate.UpdateUserInput) (goGate.UserRecord, bool, error) {
	var (
		user     goGate.UserRecord
		fullName sql.NullString
		company  sql.NullString
	)
	err := d.db.QueryRowContext(ctx, `
		UPDATE users
		SET full_name       = COALESCE($2, full_name),
		    company         = COALESCE($3, company),
		    hashed_password = COALESCE($4, hashed_password)
		WHERE id = $1
		RETURNING `+userColumns,
		id, input.FullName, input.Company, input.HashedPassword,
	).Scan(&user.ID, &user.Username, &user.Email, &user.HashedPassword, &fullName, &company, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goGate.UserRecord{}, false, nil
		}
		return goGate.UserRecord{}, false, fmt.Errorf("update user: %w", err)
	}

	user.FullName = fullName.String
	user.Company = company.String
	return user, true, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
