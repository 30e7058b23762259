package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appbilling "github.com/vicemeter/backend/internal/application/billing"
	domainbilling "github.com/vicemeter/backend/internal/domain/billing"
	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/infrastructure/persistence"
	"github.com/vicemeter/backend/internal/interfaces/http/dto"
)

type fakeProcessor struct {
	requests []domainbilling.ChargeRequest
	result   domainbilling.ChargeResult
}

func (p *fakeProcessor) CreateCharge(_ context.Context, request domainbilling.ChargeRequest) (*domainbilling.ChargeResult, error) {
	p.requests = append(p.requests, request)
	result := p.result
	return &result, nil
}

type fakeProvisioner struct {
	requests []domainbilling.ProvisionCustomerRequest
	result   domainbilling.ProvisionedCustomer
}

func (p *fakeProvisioner) ProvisionCustomer(_ context.Context, request domainbilling.ProvisionCustomerRequest) (*domainbilling.ProvisionedCustomer, error) {
	p.requests = append(p.requests, request)
	result := p.result
	return &result, nil
}

type walletHandlerFixture struct {
	engine      *gin.Engine
	buckets     *persistence.MemoryBucketRepository
	consents    *persistence.MemoryConsentRepository
	processor   *fakeProcessor
	provisioner *fakeProvisioner
}

// newWalletHandlerFixture wires the wallet routes without a payment
// processor: previews always work, chargeable settles report 503.
func newWalletHandlerFixture(t *testing.T) *walletHandlerFixture {
	return buildWalletHandlerFixture(t, nil, nil)
}

// newBilledWalletHandlerFixture wires the wallet routes with fake payment
// backends so charge and payment-setup flows complete.
func newBilledWalletHandlerFixture(t *testing.T) *walletHandlerFixture {
	processor := &fakeProcessor{result: domainbilling.ChargeResult{ExternalID: "pi_1", Status: "succeeded"}}
	provisioner := &fakeProvisioner{result: domainbilling.ProvisionedCustomer{CustomerID: "cus_1"}}
	return buildWalletHandlerFixture(t, processor, provisioner)
}

func buildWalletHandlerFixture(t *testing.T, processor *fakeProcessor, provisioner *fakeProvisioner) *walletHandlerFixture {
	t.Helper()
	buckets := persistence.NewMemoryBucketRepository()
	consents := persistence.NewMemoryConsentRepository()

	var p domainbilling.PaymentProcessor
	var cp domainbilling.CustomerProvisioner
	if processor != nil {
		p = processor
	}
	if provisioner != nil {
		cp = provisioner
	}
	service := appbilling.NewWalletService(
		buckets,
		consents,
		persistence.NewMemoryRolloverRepository(),
		p,
		cp,
		zap.NewNop(),
		appbilling.DefaultWalletServiceConfig(),
	)

	engine := gin.New()
	NewWalletHandler(service, 0).RegisterRoutes(engine.Group("/api/v1"))
	return &walletHandlerFixture{
		engine:      engine,
		buckets:     buckets,
		consents:    consents,
		processor:   processor,
		provisioner: provisioner,
	}
}

func (f *walletHandlerFixture) request(t *testing.T, method, target, userID string) *httptest.ResponseRecorder {
	t.Helper()
	return f.requestBody(t, method, target, userID, "")
}

func (f *walletHandlerFixture) requestBody(t *testing.T, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *walletHandlerFixture) seedMinutes(t *testing.T, userID, day string, category metering.Category, minutes int) {
	t.Helper()
	ts, err := time.Parse(metering.DayLayout, day)
	require.NoError(t, err)
	require.NoError(t, f.buckets.AddUsage(context.Background(), userID, "seed.example", category, minutes*60, ts.Add(12*time.Hour)))
}

func TestWalletHandler_Preview(t *testing.T) {
	t.Run("returns the week preview", func(t *testing.T) {
		f := newWalletHandlerFixture(t)
		f.seedMinutes(t, "user-1", "2025-06-09", metering.CategoryGambling, 2)

		w := f.request(t, "GET", "/api/v1/wallet/preview?week_end=2025-06-15", "user-1")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(100), data["grand_total_cents"])
		assert.Equal(t, true, data["would_charge"])
		assert.Equal(t, float64(100), data["would_charge_cents"])
		assert.Equal(t, float64(0), data["would_carry_cents"])
	})

	t.Run("below minimum reports the carry split", func(t *testing.T) {
		f := newWalletHandlerFixture(t)
		f.seedMinutes(t, "user-1", "2025-06-09", metering.CategoryPorn, 5) // 20c

		w := f.request(t, "GET", "/api/v1/wallet/preview?week_end=2025-06-15", "user-1")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, false, data["would_charge"])
		assert.Equal(t, float64(0), data["would_charge_cents"])
		assert.Equal(t, float64(20), data["would_carry_cents"])
	})

	t.Run("requires a user", func(t *testing.T) {
		f := newWalletHandlerFixture(t)
		w := f.request(t, "GET", "/api/v1/wallet/preview", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a bad week date", func(t *testing.T) {
		f := newWalletHandlerFixture(t)
		w := f.request(t, "GET", "/api/v1/wallet/preview?week_end=June", "user-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWalletHandler_Settle(t *testing.T) {
	t.Run("below minimum carries forward", func(t *testing.T) {
		f := newWalletHandlerFixture(t)
		f.seedMinutes(t, "user-1", "2025-06-09", metering.CategoryPorn, 5) // 20c

		w := f.request(t, "POST", "/api/v1/wallet/settle?week_end=2025-06-15", "user-1")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "below_minimum", data["reason"])
		assert.Equal(t, float64(20), data["carried_cents"])
	})

	t.Run("chargeable settle without a processor is 503", func(t *testing.T) {
		f := newWalletHandlerFixture(t)
		f.seedMinutes(t, "user-1", "2025-06-09", metering.CategoryGambling, 2) // 100c

		w := f.request(t, "POST", "/api/v1/wallet/settle?week_end=2025-06-15", "user-1")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeUnconfiguredDependency, resp.Error.Code)
	})

	t.Run("body payment method overrides the stored default", func(t *testing.T) {
		f := newBilledWalletHandlerFixture(t)
		f.seedMinutes(t, "user-1", "2025-06-09", metering.CategoryGambling, 2) // 100c
		require.NoError(t, f.consents.Save(context.Background(), &metering.ConsentSnapshot{
			UserID:              "user-1",
			Timestamp:           time.Now().UTC(),
			ProcessorCustomerID: "cus_1",
			PaymentMethodID:     "pm_default",
		}))

		w := f.requestBody(t, "POST", "/api/v1/wallet/settle?week_end=2025-06-15", "user-1",
			`{"payment_method_id":"pm_backup"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, f.processor.requests, 1)
		assert.Equal(t, "pm_backup", f.processor.requests[0].PaymentMethodID)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		f := newBilledWalletHandlerFixture(t)
		w := f.requestBody(t, "POST", "/api/v1/wallet/settle?week_end=2025-06-15", "user-1", `{"payment_method_id":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWalletHandler_SetupPayment(t *testing.T) {
	t.Run("provisions and attaches the payment method", func(t *testing.T) {
		f := newBilledWalletHandlerFixture(t)

		w := f.requestBody(t, "POST", "/api/v1/wallet/payment-method", "user-1",
			`{"email":"u@example.com","payment_method_id":"pm_1"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, "cus_1", data["customer_id"])
		assert.Equal(t, "pm_1", data["payment_method_id"])

		require.Len(t, f.provisioner.requests, 1)
		assert.Equal(t, "u@example.com", f.provisioner.requests[0].Email)

		snapshot, err := f.consents.Find(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "cus_1", snapshot.ProcessorCustomerID)
		assert.Equal(t, "pm_1", snapshot.PaymentMethodID)
	})

	t.Run("requires a payment method id", func(t *testing.T) {
		f := newBilledWalletHandlerFixture(t)
		w := f.requestBody(t, "POST", "/api/v1/wallet/payment-method", "user-1", `{"email":"u@example.com"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("without a provisioner reports 503", func(t *testing.T) {
		f := newWalletHandlerFixture(t)
		w := f.requestBody(t, "POST", "/api/v1/wallet/payment-method", "user-1", `{"payment_method_id":"pm_1"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestWalletHandler_Dashboard(t *testing.T) {
	f := newWalletHandlerFixture(t)

	w := f.request(t, "GET", "/api/v1/dashboard", "user-1")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Contains(t, data, "preview")
	assert.Contains(t, data, "streaks")
	assert.Contains(t, data, "today")
}
