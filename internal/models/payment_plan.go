package models

import (
	"time"
)

const (
	PaymentTypeFull        = "full"
	PaymentTypeInstallment = "installment"
)

const (
	InstallmentPending = "pending"
	InstallmentPaid    = "paid"
	InstallmentOverdue = "overdue"
)

// AllowedInstallmentCounts lists the plan lengths that can be purchased.
var AllowedInstallmentCounts = []int{6, 12, 24}

func IsAllowedInstallmentCount(n int) bool {
	for _, c := range AllowedInstallmentCounts {
		if c == n {
			return true
		}
	}
	return false
}

// PaymentPlan is either FullPayment or *InstallmentPayment.
type PaymentPlan interface {
	Type() string
	paymentPlan()
}

type FullPayment struct {
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

func (FullPayment) Type() string { return PaymentTypeFull }
func (FullPayment) paymentPlan() {}

type InstallmentPayment struct {
	Count        int           `json:"count"`
	Installments []Installment `json:"installments"`
}

func (*InstallmentPayment) Type() string { return PaymentTypeInstallment }
func (*InstallmentPayment) paymentPlan() {}

type Installment struct {
	Amount          int64      `json:"amount"`
	DueDate         time.Time  `json:"due_date"`
	Status          string     `json:"status"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

// BuildInstallments splits total into count rows of ceil(total/count) each,
// due monthly starting at start. The sum may exceed total by up to count-1.
func BuildInstallments(total int64, count int, start time.Time) []Installment {
	if count <= 0 {
		return nil
	}
	amount := (total + int64(count) - 1) / int64(count)
	out := make([]Installment, count)
	for i := range out {
		out[i] = Installment{
			Amount:  amount,
			DueDate: start.AddDate(0, i, 0),
			Status:  InstallmentPending,
		}
	}
	return out
}

func NewInstallmentPayment(total int64, count int, start time.Time) *InstallmentPayment {
	return &InstallmentPayment{
		Count:        count,
		Installments: BuildInstallments(total, count, start),
	}
}

// NextUnpaid returns the index of the earliest installment that is not paid, or -1.
func (p *InstallmentPayment) NextUnpaid() int {
	for i, in := range p.Installments {
		if in.Status != InstallmentPaid {
			return i
		}
	}
	return -1
}

func (p *InstallmentPayment) AllPaid() bool {
	return p.NextUnpaid() == -1
}

func (p *InstallmentPayment) indexByIntent(intentID string) int {
	for i, in := range p.Installments {
		if in.PaymentIntentID == intentID {
			return i
		}
	}
	return -1
}

// MarkOverdue flips pending installments whose due date passed. Returns how many changed.
func (p *InstallmentPayment) MarkOverdue(now time.Time) int {
	n := 0
	for i := range p.Installments {
		in := &p.Installments[i]
		if in.Status == InstallmentPending && in.DueDate.Before(now) {
			in.Status = InstallmentOverdue
			n++
		}
	}
	return n
}

// FirstDueAmount is what the initial payment intent charges.
func FirstDueAmount(total int64, plan PaymentPlan) int64 {
	if p, ok := plan.(*InstallmentPayment); ok && len(p.Installments) > 0 {
		return p.Installments[0].Amount
	}
	return total
}
