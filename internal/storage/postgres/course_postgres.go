package postgres

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CoursePostgres struct {
	db *pgxpool.Pool
}

func NewCoursePostgres(db *pgxpool.Pool) *CoursePostgres {
	return &CoursePostgres{db: db}
}

const courseColumns = `
	id, instructor_id, title, description, category, thumbnail_object_key,
	videos, price, status, rating, created_at, updated_at`

func scanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	var videos []byte
	err := row.Scan(
		&c.ID,
		&c.InstructorID,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.ThumbnailObjectKey,
		&videos,
		&c.Price,
		&c.Status,
		&c.Rating,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(videos, &c.Videos); err != nil {
		return nil, fmt.Errorf("decode videos of course %s: %w", c.ID, err)
	}
	if c.Videos == nil {
		c.Videos = []models.Video{}
	}
	return &c, nil
}

func (r *CoursePostgres) NewCourse(ctx context.Context, course *models.Course) (uuid.UUID, error) {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	if course.Videos == nil {
		course.Videos = []models.Video{}
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	videos, err := json.Marshal(course.Videos)
	if err != nil {
		return uuid.Nil, err
	}
	query := `
		INSERT INTO courses (
			id, instructor_id, title, description, category, thumbnail_object_key,
			videos, price, status, rating, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		course.ID,
		course.InstructorID,
		course.Title,
		course.Description,
		course.Category,
		course.ThumbnailObjectKey,
		videos,
		course.Price,
		course.Status,
		course.Rating,
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert course: %w", err)
	}
	return course.ID, nil
}

func (r *CoursePostgres) CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	course, err := scanCourse(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (r *CoursePostgres) UpdateDetails(ctx context.Context, course *models.Course) error {
	const query = `
		UPDATE courses
		   SET title = $2, description = $3, category = $4, price = $5, updated_at = NOW()
		 WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, course.ID, course.Title, course.Description, course.Category, course.Price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}

func (r *CoursePostgres) ChangeStatus(ctx context.Context, id uuid.UUID, status string) error {
	const query = `
        UPDATE courses
           SET status     = $2,
               updated_at = NOW()
         WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}

func (r *CoursePostgres) UpdateThumbnail(ctx context.Context, id uuid.UUID, objectKey string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE courses SET thumbnail_object_key = $2, updated_at = NOW() WHERE id = $1`, id, objectKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}

// AppendVideo adds a video at the end of the list in one statement.
func (r *CoursePostgres) AppendVideo(ctx context.Context, id uuid.UUID, video models.Video) error {
	raw, err := json.Marshal([]models.Video{video})
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE courses SET videos = videos || $2::jsonb, updated_at = NOW() WHERE id = $1`, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}

func (r *CoursePostgres) ReplaceVideos(ctx context.Context, id uuid.UUID, videos []models.Video) error {
	if videos == nil {
		videos = []models.Video{}
	}
	raw, err := json.Marshal(videos)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE courses SET videos = $2::jsonb, updated_at = NOW() WHERE id = $1`, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}

func (r *CoursePostgres) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	tag, err := r.db.Exec(ctx, `UPDATE courses SET rating = $2 WHERE id = $1`, id, rating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}

func (r *CoursePostgres) queryCourses(ctx context.Context, query string, args ...any) ([]models.Course, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

func (r *CoursePostgres) ListPublishedCourses(ctx context.Context, limit, offset int) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.queryCourses(ctx, query, models.CourseStatusPublished, limit, offset)
}

func (r *CoursePostgres) CountPublishedCourses(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE status = $1`, models.CourseStatusPublished).Scan(&n)
	return n, err
}

// RelatedCourses returns published courses sharing the category, best rated first.
func (r *CoursePostgres) RelatedCourses(ctx context.Context, id uuid.UUID, category string, limit int) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses
		WHERE status = $1 AND category = $2 AND id <> $3 ORDER BY rating DESC, created_at DESC LIMIT $4`
	return r.queryCourses(ctx, query, models.CourseStatusPublished, category, id, limit)
}

func (r *CoursePostgres) ListCoursesByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE instructor_id = $1 ORDER BY created_at DESC`
	return r.queryCourses(ctx, query, instructorID)
}

func (r *CoursePostgres) CoursesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Course, error) {
	out := make(map[uuid.UUID]models.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	courses, err := r.queryCourses(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		out[c.ID] = c
	}
	return out, nil
}

// DeleteCourse removes the course. Enrollments, memberships, reviews and certificates
// go with it through foreign key cascades.
func (r *CoursePostgres) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrCourseNotFound
	}
	return nil
}
