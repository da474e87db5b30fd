package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CourseStudentsPostgres stores the enrolled-students relation as a set of (course, user) pairs.
type CourseStudentsPostgres struct {
	db *pgxpool.Pool
}

func NewCourseStudentsPostgres(db *pgxpool.Pool) *CourseStudentsPostgres {
	return &CourseStudentsPostgres{db: db}
}

// AddStudent is idempotent: adding an existing pair is a no-op.
func (r *CourseStudentsPostgres) AddStudent(ctx context.Context, courseID, userID uuid.UUID) error {
	query := `
        INSERT INTO course_students (course_id, user_id, enrolled_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (course_id, user_id) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query, courseID, userID); err != nil {
		return fmt.Errorf("failed to add course student: %w", err)
	}
	return nil
}

func (r *CourseStudentsPostgres) StudentIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM course_students WHERE course_id = $1 ORDER BY enrolled_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
