package postgres

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewPostgres struct {
	db *pgxpool.Pool
}

func NewReviewPostgres(db *pgxpool.Pool) *ReviewPostgres {
	return &ReviewPostgres{db: db}
}

// UpsertReview writes the single review a user holds for a course.
func (r *ReviewPostgres) UpsertReview(ctx context.Context, review *models.Review) error {
	now := time.Now().UTC()
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	query := `
		INSERT INTO course_reviews (id, course_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (course_id, user_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, review.ID, review.CourseID, review.UserID, review.Rating, review.Comment, now).
		Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
}

func (r *ReviewPostgres) ReviewByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var rv models.Review
	err := r.db.QueryRow(ctx, `
		SELECT id, course_id, user_id, rating, comment, created_at, updated_at
		FROM course_reviews WHERE id = $1
	`, id).Scan(&rv.ID, &rv.CourseID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrReviewNotFound
		}
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewPostgres) DeleteReview(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM course_reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrReviewNotFound
	}
	return nil
}

func (r *ReviewPostgres) ReviewsByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Review, error) {
	rows, err := r.db.Query(ctx, `
		SELECT cr.id, cr.course_id, cr.user_id, u.name, cr.rating, cr.comment, cr.created_at, cr.updated_at
		FROM course_reviews cr
		JOIN users u ON u.id = cr.user_id
		WHERE cr.course_id = $1
		ORDER BY cr.created_at DESC
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Review, 0)
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.CourseID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *ReviewPostgres) RatingsByCourse(ctx context.Context, courseID uuid.UUID) ([]int, error) {
	rows, err := r.db.Query(ctx, `SELECT rating FROM course_reviews WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int, 0)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
