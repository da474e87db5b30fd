package stripe

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/internal/payment"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Course prices are whole currency units; Stripe wants the minor unit.
const minorUnitsPerUnit = 100

type Processor struct {
	api           *client.API
	webhookSecret string
	currency      string
}

func NewProcessor(secretKey, webhookSecret, currency string) *Processor {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Processor{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		currency:      strings.ToLower(currency),
	}
}

func (p *Processor) CreateCustomer(ctx context.Context, user *models.User) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
	}
	params.Context = ctx
	params.AddMetadata("user_id", user.ID.String())

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create customer: %v", app_errors.ErrPaymentProvider, err)
	}
	return c.ID, nil
}

func (p *Processor) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount * minorUnitsPerUnit),
		Currency: stripe.String(p.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.CustomerRef != "" {
		params.Customer = stripe.String(req.CustomerRef)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	params.AddMetadata("enrollment_id", req.EnrollmentID.String())
	params.AddMetadata("user_id", req.UserID.String())
	params.AddMetadata("course_id", req.CourseID.String())
	params.AddMetadata("installment", strconv.Itoa(req.Installment))

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment intent: %v", app_errors.ErrPaymentProvider, err)
	}
	return toIntent(pi), nil
}

func (p *Processor) RetrievePaymentIntent(ctx context.Context, id string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve payment intent %s: %v", app_errors.ErrPaymentProvider, id, err)
	}
	return toIntent(pi), nil
}

// CancelPaymentIntent voids an intent that was replaced by a newer one.
func (p *Processor) CancelPaymentIntent(ctx context.Context, id string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Cancel(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: cancel payment intent %s: %v", app_errors.ErrPaymentProvider, id, err)
	}
	return toIntent(pi), nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the event.
func (p *Processor) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrInvalidSignature, err)
	}

	out := &payment.Event{ID: ev.ID, Type: string(ev.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && ev.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent of event %s: %w", ev.ID, err)
		}
		out.Intent = toIntent(&pi)
	}
	return out, nil
}

func toIntent(pi *stripe.PaymentIntent) *payment.Intent {
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount / minorUnitsPerUnit,
		Metadata:     pi.Metadata,
	}
}
