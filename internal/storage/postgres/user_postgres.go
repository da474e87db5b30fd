package postgres

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserPostgres struct {
	db *pgxpool.Pool
}

func NewUserPostgres(db *pgxpool.Pool) *UserPostgres {
	return &UserPostgres{db: db}
}

const userSelect = `
	SELECT u.id, u.name, u.email, u.password, COALESCE(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_roles ur ON u.id = ur.user_id
	LEFT JOIN roles r ON ur.role_id = r.id
`

func (r *UserPostgres) userWhere(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx, userSelect+" WHERE "+where+" GROUP BY u.id", arg).
		Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserPostgres) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.userWhere(ctx, "u.id = $1", id)
}

func (r *UserPostgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.userWhere(ctx, "lower(u.email) = lower($1)", email)
}

func (r *UserPostgres) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id`,
		user.Name, user.Email, user.Password,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, app_errors.ErrUserExists
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	const insertRole = `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
	`
	for _, role := range user.Roles {
		tag, err := tx.Exec(ctx, insertRole, user.ID, role)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("unknown role %q", role)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &user, nil
}
