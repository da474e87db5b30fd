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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EnrollmentPostgres struct {
	db *pgxpool.Pool
}

func NewEnrollmentPostgres(db *pgxpool.Pool) *EnrollmentPostgres {
	return &EnrollmentPostgres{db: db}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const enrollmentColumns = `
	id, user_id, course_id, total_amount, payment_type, installment_count, installments,
	paid_at, payment_intent_id, customer_ref, status, access_granted_at,
	completed_video_ids, progress, completion_status, completion_date, created_at, updated_at`

// enrollmentRow is the flat column layout of an enrollment.
type enrollmentRow struct {
	paymentType      string
	installmentCount int
	installments     []byte
	paidAt           *time.Time
	completedVideos  []string
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	var raw enrollmentRow
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.CourseID,
		&e.TotalAmount,
		&raw.paymentType,
		&raw.installmentCount,
		&raw.installments,
		&raw.paidAt,
		&e.PaymentIntentID,
		&e.CustomerRef,
		&e.Status,
		&e.AccessGrantedAt,
		&raw.completedVideos,
		&e.Progress,
		&e.CompletionStatus,
		&e.CompletionDate,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch raw.paymentType {
	case models.PaymentTypeInstallment:
		plan := &models.InstallmentPayment{Count: raw.installmentCount}
		if err := json.Unmarshal(raw.installments, &plan.Installments); err != nil {
			return nil, fmt.Errorf("decode installments of enrollment %s: %w", e.ID, err)
		}
		e.Plan = plan
	default:
		e.Plan = models.FullPayment{PaidAt: raw.paidAt}
	}

	e.CompletedVideos = make([]uuid.UUID, 0, len(raw.completedVideos))
	for _, s := range raw.completedVideos {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("bad video id %q in enrollment %s: %w", s, e.ID, err)
		}
		e.CompletedVideos = append(e.CompletedVideos, id)
	}
	return &e, nil
}

func flattenEnrollment(e *models.Enrollment) (enrollmentRow, error) {
	raw := enrollmentRow{
		paymentType:     e.PaymentType(),
		installments:    []byte("[]"),
		completedVideos: make([]string, 0, len(e.CompletedVideos)),
	}
	switch p := e.Plan.(type) {
	case models.FullPayment:
		raw.paidAt = p.PaidAt
	case *models.InstallmentPayment:
		b, err := json.Marshal(p.Installments)
		if err != nil {
			return raw, err
		}
		raw.installmentCount = p.Count
		raw.installments = b
	}
	for _, id := range e.CompletedVideos {
		raw.completedVideos = append(raw.completedVideos, id.String())
	}
	return raw, nil
}

func (r *EnrollmentPostgres) Create(ctx context.Context, e *models.Enrollment) error {
	raw, err := flattenEnrollment(e)
	if err != nil {
		return err
	}
	query := `INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = r.db.Exec(ctx, query,
		e.ID, e.UserID, e.CourseID, e.TotalAmount, raw.paymentType, raw.installmentCount, raw.installments,
		raw.paidAt, e.PaymentIntentID, e.CustomerRef, e.Status, e.AccessGrantedAt,
		raw.completedVideos, e.Progress, e.CompletionStatus, e.CompletionDate, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return app_errors.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}
	return nil
}

func save(ctx context.Context, db execer, e *models.Enrollment) error {
	raw, err := flattenEnrollment(e)
	if err != nil {
		return err
	}
	const query = `
		UPDATE enrollments SET
			total_amount = $2, payment_type = $3, installment_count = $4, installments = $5,
			paid_at = $6, payment_intent_id = $7, customer_ref = $8, status = $9,
			access_granted_at = $10, completed_video_ids = $11, progress = $12,
			completion_status = $13, completion_date = $14, updated_at = $15
		WHERE id = $1
	`
	tag, err := db.Exec(ctx, query,
		e.ID, e.TotalAmount, raw.paymentType, raw.installmentCount, raw.installments,
		raw.paidAt, e.PaymentIntentID, e.CustomerRef, e.Status,
		e.AccessGrantedAt, raw.completedVideos, e.Progress,
		e.CompletionStatus, e.CompletionDate, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrEnrollmentNotFound
	}
	return nil
}

// UpdateEnrollment locks the row, hands it to fn and writes back whatever fn left in it.
// An error from fn aborts the transaction and nothing is written.
func (r *EnrollmentPostgres) UpdateEnrollment(ctx context.Context, id uuid.UUID, fn func(*models.Enrollment) error) (*models.Enrollment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 FOR UPDATE`
	e, err := scanEnrollment(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrEnrollmentNotFound
		}
		return nil, err
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	if err := save(ctx, tx, e); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentPostgres) one(ctx context.Context, where string, args ...any) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE ` + where
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentPostgres) EnrollmentByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	return r.one(ctx, `id = $1`, id)
}

func (r *EnrollmentPostgres) EnrollmentByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	return r.one(ctx, `user_id = $1 AND course_id = $2`, userID, courseID)
}

// EnrollmentByPaymentIntent finds the enrollment that owns an intent, either as its
// initial intent or bound to one of its installments.
func (r *EnrollmentPostgres) EnrollmentByPaymentIntent(ctx context.Context, intentID string) (*models.Enrollment, error) {
	if intentID == "" {
		return nil, app_errors.ErrEnrollmentNotFound
	}
	return r.one(ctx,
		`payment_intent_id = $1 OR installments @> jsonb_build_array(jsonb_build_object('payment_intent_id', $1::text)) LIMIT 1`,
		intentID)
}

func (r *EnrollmentPostgres) list(ctx context.Context, where string, args ...any) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE ` + where + ` ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *EnrollmentPostgres) EnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	return r.list(ctx, `user_id = $1`, userID)
}

// OpenInstallmentEnrollments returns installment enrollments that still have something unpaid.
func (r *EnrollmentPostgres) OpenInstallmentEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	return r.list(ctx, `payment_type = $1 AND status <> $2`, models.PaymentTypeInstallment, models.EnrollmentCompleted)
}
