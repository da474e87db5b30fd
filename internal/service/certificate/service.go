package certificate

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type certificateRepo interface {
	CreateCertificate(ctx context.Context, c *models.Certificate) (*models.Certificate, error)
	CertificateByID(ctx context.Context, id uuid.UUID) (*models.Certificate, error)
	CertificateByNumber(ctx context.Context, number string) (*models.Certificate, error)
	CertificateByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Certificate, error)
	CertificatesByUser(ctx context.Context, userID uuid.UUID) ([]models.Certificate, error)
	SetCertificateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type fileRepo interface {
	UploadCertificate(ctx context.Context, certificateID uuid.UUID, png []byte) (string, error)
	CertificateURL(ctx context.Context, objectKey string) (string, error)
	DeleteCertificate(ctx context.Context, objectKey string) error
}

type courseRepo interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

type userRepo interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type enrollmentRepo interface {
	EnrollmentByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
}

type renderer interface {
	Render(c Content) ([]byte, error)
}

type CertificateService struct {
	log         logger.Log
	certs       certificateRepo
	files       fileRepo
	courses     courseRepo
	users       userRepo
	enrollments enrollmentRepo
	renderer    renderer
	verifyBase  string
	now         func() time.Time
}

// NewCertificateService builds verification links as publicBaseURL + /v1/certificates/verify/<number>.
func NewCertificateService(log logger.Log, certs certificateRepo, files fileRepo, courses courseRepo,
	users userRepo, enrollments enrollmentRepo, r renderer, publicBaseURL string,
) *CertificateService {
	return &CertificateService{
		log:         log.With("service", "certificate"),
		certs:       certs,
		files:       files,
		courses:     courses,
		users:       users,
		enrollments: enrollments,
		renderer:    r,
		verifyBase:  strings.TrimRight(publicBaseURL, "/") + "/v1/certificates/verify/",
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Generate issues the certificate for a completed course. Calling it again returns the stored one.
func (s *CertificateService) Generate(ctx context.Context, userID, courseID uuid.UUID) (*models.CertificateView, error) {
	existing, err := s.certs.CertificateByUserCourse(ctx, userID, courseID)
	switch {
	case err == nil:
		if existing.Status == models.CertificateRevoked {
			return nil, app_errors.ErrCertificateRevoked
		}
		return s.view(ctx, existing, true)
	case !errors.Is(err, app_errors.ErrCertificateNotFound):
		return nil, err
	}

	course, err := s.courses.CourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	e, err := s.enrollments.EnrollmentByUserCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, app_errors.ErrEnrollmentNotFound) {
			return nil, app_errors.ErrNotEnrolled
		}
		return nil, err
	}
	if !e.HasAccess() {
		return nil, app_errors.ErrNotEnrolled
	}
	if e.CompletionDate == nil {
		return nil, app_errors.ErrCourseNotCompleted
	}
	student, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	instructorName := ""
	if instructor, err := s.users.UserByID(ctx, course.InstructorID); err != nil {
		s.log.ErrorErr("certificate: failed to load instructor", err, "course_id", courseID)
	} else {
		instructorName = instructor.Name
	}

	now := s.now()
	cert := &models.Certificate{
		ID:             uuid.New(),
		UserID:         userID,
		CourseID:       courseID,
		IssueDate:      now,
		CompletionDate: *e.CompletionDate,
		Status:         models.CertificateIssued,
	}
	cert.CertificateNumber = models.NewCertificateNumber(cert.ID, now)
	cert.VerificationURL = s.verifyBase + cert.CertificateNumber

	png, err := s.renderer.Render(Content{
		Number:          cert.CertificateNumber,
		StudentName:     student.Name,
		CourseTitle:     course.Title,
		InstructorName:  instructorName,
		CompletionDate:  cert.CompletionDate,
		IssueDate:       cert.IssueDate,
		VerificationURL: cert.VerificationURL,
	})
	if err != nil {
		return nil, err
	}
	if cert.ObjectKey, err = s.files.UploadCertificate(ctx, cert.ID, png); err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrMediaHost, err)
	}

	stored, err := s.certs.CreateCertificate(ctx, cert)
	if err != nil {
		s.dropFile(ctx, cert.ObjectKey)
		return nil, err
	}
	if stored.ID != cert.ID {
		// A concurrent request issued first.
		s.dropFile(ctx, cert.ObjectKey)
	} else {
		s.log.Info("certificate issued", "certificate_number", stored.CertificateNumber, "user_id", userID, "course_id", courseID)
	}
	return s.viewWith(ctx, stored, student.Name, course.Title, true)
}

// Get returns a certificate to its owner or an admin.
func (s *CertificateService) Get(ctx context.Context, id, userID uuid.UUID, roles []string) (*models.CertificateView, error) {
	cert, err := s.certs.CertificateByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert.UserID != userID && !models.HasAnyRole(roles, models.AdminRole) {
		return nil, app_errors.ErrForbidden
	}
	return s.view(ctx, cert, true)
}

func (s *CertificateService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.CertificateView, error) {
	certs, err := s.certs.CertificatesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.CertificateView, 0, len(certs))
	for i := range certs {
		v, err := s.view(ctx, &certs[i], true)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Verify is the public check behind the link printed on every certificate.
func (s *CertificateService) Verify(ctx context.Context, number string) (*models.CertificateVerification, error) {
	cert, err := s.certs.CertificateByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, cert, false)
	if err != nil {
		return nil, err
	}
	return &models.CertificateVerification{
		Valid:             cert.Status == models.CertificateIssued,
		CertificateNumber: cert.CertificateNumber,
		StudentName:       v.StudentName,
		CourseTitle:       v.CourseTitle,
		IssueDate:         cert.IssueDate,
		CompletionDate:    cert.CompletionDate,
		Status:            cert.Status,
	}, nil
}

func (s *CertificateService) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := s.certs.SetCertificateStatus(ctx, id, models.CertificateRevoked); err != nil {
		return err
	}
	s.log.Info("certificate revoked", "certificate_id", id)
	return nil
}

func (s *CertificateService) view(ctx context.Context, cert *models.Certificate, withDownload bool) (*models.CertificateView, error) {
	var studentName, courseTitle string
	if u, err := s.users.UserByID(ctx, cert.UserID); err != nil {
		s.log.ErrorErr("certificate view: failed to load student", err, "certificate_id", cert.ID)
	} else {
		studentName = u.Name
	}
	if c, err := s.courses.CourseByID(ctx, cert.CourseID); err != nil {
		s.log.ErrorErr("certificate view: failed to load course", err, "certificate_id", cert.ID)
	} else {
		courseTitle = c.Title
	}
	return s.viewWith(ctx, cert, studentName, courseTitle, withDownload)
}

func (s *CertificateService) viewWith(ctx context.Context, cert *models.Certificate, studentName, courseTitle string, withDownload bool) (*models.CertificateView, error) {
	v := &models.CertificateView{Certificate: *cert, StudentName: studentName, CourseTitle: courseTitle}
	if withDownload && cert.ObjectKey != "" && cert.Status == models.CertificateIssued {
		u, err := s.files.CertificateURL(ctx, cert.ObjectKey)
		if err != nil {
			s.log.ErrorErr("failed to sign certificate url", err, "certificate_id", cert.ID)
		} else {
			v.DownloadURL = u
		}
	}
	return v, nil
}

func (s *CertificateService) dropFile(ctx context.Context, objectKey string) {
	if err := s.files.DeleteCertificate(ctx, objectKey); err != nil {
		s.log.ErrorErr("failed to delete certificate file", err, "object_key", objectKey)
	}
}
