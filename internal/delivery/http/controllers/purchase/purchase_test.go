package purchase

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/delivery/http/controllers/middleware"
	"CourseMarket/internal/models"
	"CourseMarket/internal/payment"
	purchasesvc "CourseMarket/internal/service/purchase"
	"CourseMarket/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := common.RegisterValidators(); err != nil {
		panic(err)
	}
}

type stubParser struct {
	ev  *payment.Event
	err error
}

func (p stubParser) ParseEvent([]byte, string) (*payment.Event, error) { return p.ev, p.err }

type stubDispatcher struct {
	calls int
	err   error
}

func (d *stubDispatcher) Dispatch(context.Context, *payment.Event) error {
	d.calls++
	return d.err
}

type stubService struct {
	Service
	initiate func(paymentType string, n int) (*purchasesvc.Checkout, error)
	confirm  func(userID uuid.UUID, intentID string) (*models.Enrollment, error)
}

func (s stubService) Initiate(_ context.Context, _, _ uuid.UUID, paymentType string, n int) (*purchasesvc.Checkout, error) {
	return s.initiate(paymentType, n)
}

func (s stubService) Confirm(_ context.Context, userID uuid.UUID, intentID string) (*models.Enrollment, error) {
	return s.confirm(userID, intentID)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func webhookRouter(p EventParser, d EventDispatcher) *gin.Engine {
	r := gin.New()
	r.POST("/purchase/webhook", NewWebhookHandler(logger.NewDiscard(), p, d).Handle)
	return r
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	d := &stubDispatcher{}
	r := webhookRouter(stubParser{err: fmt.Errorf("%w: no match", app_errors.ErrInvalidSignature)}, d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/purchase/webhook", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, app_errors.ErrInvalidSignature.Error(), env.Message)
	assert.Zero(t, d.calls)
}

func TestWebhook_AcknowledgesAfterVerification(t *testing.T) {
	ev := &payment.Event{ID: "evt_1", Type: payment.EventPaymentSucceeded, Intent: &payment.Intent{ID: "pi_1"}}

	for name, dispatchErr := range map[string]error{
		"handled": nil,
		"failed":  errors.New("enrollment store unavailable"),
	} {
		t.Run(name, func(t *testing.T) {
			d := &stubDispatcher{err: dispatchErr}
			r := webhookRouter(stubParser{ev: ev}, d)

			req := httptest.NewRequest(http.MethodPost, "/purchase/webhook", strings.NewReader(`{"id":"evt_1"}`))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"received":true}`, w.Body.String())
			assert.Equal(t, 1, d.calls)
		})
	}
}

func TestWebhook_UndecodableVerifiedEventIsAcknowledged(t *testing.T) {
	d := &stubDispatcher{}
	r := webhookRouter(stubParser{err: errors.New("decode payment intent of event evt_1: unexpected end of JSON input")}, d)

	req := httptest.NewRequest(http.MethodPost, "/purchase/webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	assert.Zero(t, d.calls)
}

func authed(userID uuid.UUID, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ClientIDCtx, userID)
		c.Set(middleware.ClientRolesCtx, []string{models.StudentRole})
	})
	r.POST("/", h)
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestInitiate_Validation(t *testing.T) {
	called := false
	svc := stubService{initiate: func(paymentType string, n int) (*purchasesvc.Checkout, error) {
		called = true
		return &purchasesvc.Checkout{ClientSecret: "secret", PaymentType: paymentType, Amount: 17}, nil
	}}
	h := NewHandler(logger.NewDiscard(), svc)
	r := authed(uuid.New(), h.Initiate)
	courseID := uuid.NewString()

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad plan size", `{"courseId":"` + courseID + `","paymentType":"installment","installmentPlan":7}`, http.StatusBadRequest},
		{"unknown payment type", `{"courseId":"` + courseID + `","paymentType":"barter"}`, http.StatusBadRequest},
		{"missing course", `{"paymentType":"full"}`, http.StatusBadRequest},
		{"malformed course id", `{"courseId":"nope","paymentType":"full"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := post(r, tc.body)
			assert.Equal(t, tc.code, w.Code)
			assert.False(t, decode(t, w).Success)
		})
	}
	assert.False(t, called)

	w := post(r, `{"courseId":"`+courseID+`","paymentType":"installment","installmentPlan":6}`)
	require.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	var checkout purchasesvc.Checkout
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	assert.Equal(t, "secret", checkout.ClientSecret)
	assert.Equal(t, int64(17), checkout.Amount)
}

func TestConfirm_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{app_errors.ErrNotEnrollmentOwner, http.StatusForbidden},
		{app_errors.ErrPaymentNotSucceeded, http.StatusBadRequest},
		{app_errors.ErrEnrollmentNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: timeout", app_errors.ErrPaymentProvider), http.StatusBadGateway},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			svc := stubService{confirm: func(uuid.UUID, string) (*models.Enrollment, error) { return nil, tc.err }}
			r := authed(uuid.New(), NewHandler(logger.NewDiscard(), svc).Confirm)

			w := post(r, `{"paymentIntentId":"pi_1"}`)
			assert.Equal(t, tc.code, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
			if tc.code >= http.StatusInternalServerError {
				assert.NotContains(t, env.Message, tc.err.Error())
			}
		})
	}
}

func TestConfirm_ReturnsPurchase(t *testing.T) {
	userID := uuid.New()
	svc := stubService{confirm: func(got uuid.UUID, intentID string) (*models.Enrollment, error) {
		assert.Equal(t, userID, got)
		assert.Equal(t, "pi_1", intentID)
		e := models.NewEnrollment(userID, uuid.New(), 100, models.FullPayment{}, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
		e.Status = models.EnrollmentCompleted
		return e, nil
	}}
	r := authed(userID, NewHandler(logger.NewDiscard(), svc).Confirm)

	w := post(r, `{"paymentIntentId":"pi_1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Purchase struct {
			Status      string `json:"status"`
			PaymentType string `json:"payment_type"`
		} `json:"purchase"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, models.EnrollmentCompleted, data.Purchase.Status)
	assert.Equal(t, models.PaymentTypeFull, data.Purchase.PaymentType)
}
