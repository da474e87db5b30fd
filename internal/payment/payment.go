package payment

import "github.com/google/uuid"

const (
	StatusSucceeded       = "succeeded"
	StatusProcessing      = "processing"
	StatusRequiresPayment = "requires_payment_method"
	StatusCanceled        = "canceled"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Intent is a single payment attempt at the processor.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Metadata     map[string]string
}

func (i *Intent) Succeeded() bool {
	return i != nil && i.Status == StatusSucceeded
}

type IntentRequest struct {
	Amount       int64
	CustomerRef  string
	EnrollmentID uuid.UUID
	UserID       uuid.UUID
	CourseID     uuid.UUID
	Installment  int
	Description  string
}

// Event is a verified inbound processor notification.
type Event struct {
	ID     string
	Type   string
	Intent *Intent
}
