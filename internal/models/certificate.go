package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CertificateIssued  = "issued"
	CertificateRevoked = "revoked"
)

type Certificate struct {
	ID                uuid.UUID `json:"id"`
	CertificateNumber string    `json:"certificate_number"`
	UserID            uuid.UUID `json:"user_id"`
	CourseID          uuid.UUID `json:"course_id"`
	IssueDate         time.Time `json:"issue_date"`
	CompletionDate    time.Time `json:"completion_date"`
	ObjectKey         string    `json:"-"`
	VerificationURL   string    `json:"verification_url"`
	Status            string    `json:"status"`
}

// NewCertificateNumber builds a public identifier such as CERT-20240501-1A2B3C4D.
func NewCertificateNumber(id uuid.UUID, issued time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("CERT-%s-%s", issued.UTC().Format("20060102"), short)
}

type CertificateView struct {
	Certificate
	StudentName string `json:"student_name"`
	CourseTitle string `json:"course_title"`
	DownloadURL string `json:"download_url,omitempty"`
}

// CertificateVerification is the public answer for a certificate number.
type CertificateVerification struct {
	Valid             bool      `json:"valid"`
	CertificateNumber string    `json:"certificate_number"`
	StudentName       string    `json:"student_name"`
	CourseTitle       string    `json:"course_title"`
	IssueDate         time.Time `json:"issue_date"`
	CompletionDate    time.Time `json:"completion_date"`
	Status            string    `json:"status"`
}
