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

type CertificatePostgres struct {
	db *pgxpool.Pool
}

func NewCertificatePostgres(db *pgxpool.Pool) *CertificatePostgres {
	return &CertificatePostgres{db: db}
}

const certificateColumns = `id, certificate_number, user_id, course_id, issue_date, completion_date,
	object_key, verification_url, status`

func scanCertificate(row pgx.Row) (*models.Certificate, error) {
	var c models.Certificate
	err := row.Scan(&c.ID, &c.CertificateNumber, &c.UserID, &c.CourseID, &c.IssueDate, &c.CompletionDate,
		&c.ObjectKey, &c.VerificationURL, &c.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, app_errors.ErrCertificateNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateCertificate returns the stored certificate for (user, course) if one already exists.
func (r *CertificatePostgres) CreateCertificate(ctx context.Context, c *models.Certificate) (*models.Certificate, error) {
	query := `
		INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, course_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, c.ID, c.CertificateNumber, c.UserID, c.CourseID, c.IssueDate,
		c.CompletionDate, c.ObjectKey, c.VerificationURL, c.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to insert certificate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.CertificateByUserCourse(ctx, c.UserID, c.CourseID)
	}
	return c, nil
}

func (r *CertificatePostgres) CertificateByID(ctx context.Context, id uuid.UUID) (*models.Certificate, error) {
	return scanCertificate(r.db.QueryRow(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, id))
}

func (r *CertificatePostgres) CertificateByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	return scanCertificate(r.db.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE certificate_number = $1`, number))
}

func (r *CertificatePostgres) CertificateByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Certificate, error) {
	return scanCertificate(r.db.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE user_id = $1 AND course_id = $2`, userID, courseID))
}

func (r *CertificatePostgres) CertificatesByUser(ctx context.Context, userID uuid.UUID) ([]models.Certificate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE user_id = $1 ORDER BY issue_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CertificatePostgres) SetCertificateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE certificates SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return app_errors.ErrCertificateNotFound
	}
	return nil
}
