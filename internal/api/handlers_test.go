package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nikolayk812/storefront-cart/internal/api"
	"github.com/nikolayk812/storefront-cart/internal/catalog"
	"github.com/nikolayk812/storefront-cart/internal/checkout"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

type apiFixture struct {
	server    *httptest.Server
	products  []domain.Product
	terminals *api.Terminals
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	products := catalog.Generate(4, 11)
	cat := catalog.NewMemory(products...)
	repo := memory.New()

	instant := func(time.Duration, <-chan struct{}) bool { return true }
	terminals, err := api.NewTerminals(cat, repo, repo, []checkout.Config{
		{
			Variant: checkout.Storefront,
			Pricing: domain.StorefrontPricing(currency.IDR, domain.DefaultShippingFee),
		},
		{
			Variant: checkout.PointOfSale,
			Pricing: domain.POSPricing(currency.IDR, domain.DefaultPOSTaxRate),
		},
	}, nil, checkout.WithWaitFunc(instant))
	require.NoError(t, err)

	h := api.NewHandler(cat, terminals, repo, nil)
	server := httptest.NewServer(api.NewRouter(h, []string{"*"}))
	t.Cleanup(func() {
		server.Close()
		terminals.Shutdown(context.Background())
	})

	return &apiFixture{server: server, products: products, terminals: terminals}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestListProducts(t *testing.T) {
	f := newAPIFixture(t)

	var products []api.ProductDTO
	status := f.do(t, http.MethodGet, "/api/products", nil, &products)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, products, len(f.products))
	assert.Equal(t, f.products[0].ID.String(), products[0].ID)
	assert.True(t, strings.HasPrefix(products[0].Price.Formatted, "Rp "))

	var errResp api.ErrorResponse
	status = f.do(t, http.MethodGet, "/api/products/"+string(domain.NewSessionID()), nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCartRoutes(t *testing.T) {
	f := newAPIFixture(t)
	base := "/api/storefront/carts/shopper-1"
	p := f.products[0]

	var cart api.CartDTO
	status := f.do(t, http.MethodPost, base+"/items", api.AddItemRequest{ProductID: p.ID.String(), Quantity: 2}, &cart)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Count)
	assert.Equal(t, p.Name, cart.Items[0].Name)
	assert.Equal(t, p.Price.Amount*2+domain.DefaultShippingFee, cart.Breakdown.Total.Amount)

	status = f.do(t, http.MethodPut, base+"/items/"+p.ID.String(), api.SetQuantityRequest{Quantity: 5}, &cart)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, cart.Count)

	status = f.do(t, http.MethodDelete, base+"/items/"+p.ID.String(), nil, &cart)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Breakdown.Total.Amount)

	var errResp api.ErrorResponse
	status = f.do(t, http.MethodPost, base+"/items", api.AddItemRequest{ProductID: string(domain.NewSessionID())}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	status = f.do(t, http.MethodPost, base+"/items", api.AddItemRequest{ProductID: f.products[1].ID.String(), Quantity: -1}, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status = f.do(t, http.MethodGet, "/api/kiosk/carts/shopper-1", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStorefrontCheckoutFlow(t *testing.T) {
	f := newAPIFixture(t)
	base := "/api/storefront/carts/shopper-2"

	var errResp api.ErrorResponse
	status := f.do(t, http.MethodPost, base+"/checkout", nil, &errResp)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, errResp.Details, "cart is empty")

	f.do(t, http.MethodPost, base+"/items", api.AddItemRequest{ProductID: f.products[0].ID.String(), Quantity: 1}, nil)

	var session api.SessionDTO
	status = f.do(t, http.MethodPost, base+"/checkout", nil, &session)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "CART_REVIEW", session.State)

	status = f.do(t, http.MethodPost, base+"/checkout/proceed", nil, &session)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DETAILS_ENTRY", session.State)

	status = f.do(t, http.MethodPost, base+"/checkout/submit", nil, &errResp)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, errResp.Details, "payment method is required")

	status = f.do(t, http.MethodPut, base+"/checkout/address", api.AddressDTO{Recipient: "Sari", City: "Solo"}, &session)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, session.ShippingAddress)

	status = f.do(t, http.MethodPut, base+"/checkout/payment-method", api.PaymentMethodRequest{Method: "cash"}, &errResp)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	status = f.do(t, http.MethodPut, base+"/checkout/payment-method", api.PaymentMethodRequest{Method: "qris"}, &session)
	require.Equal(t, http.StatusOK, status)

	status = f.do(t, http.MethodPost, base+"/checkout/submit", nil, &session)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "PROCESSING", session.State)

	status = f.do(t, http.MethodPost, base+"/items", api.AddItemRequest{ProductID: f.products[1].ID.String(), Quantity: 1}, &errResp)
	assert.Equal(t, http.StatusConflict, status)

	status = f.do(t, http.MethodDelete, base+"/checkout", nil, &errResp)
	assert.Equal(t, http.StatusConflict, status)

	status = f.do(t, http.MethodPost, base+"/checkout/confirm", nil, &session)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SUCCESS", session.State)
	require.NotEmpty(t, session.ReceiptID)

	var rec api.ReceiptDTO
	status = f.do(t, http.MethodGet, "/api/receipts/"+session.ReceiptID, nil, &rec)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "qris", rec.PaymentMethod)
	require.Len(t, rec.Items, 1)

	var cart api.CartDTO
	f.do(t, http.MethodGet, base, nil, &cart)
	assert.Empty(t, cart.Items)
	assert.False(t, cart.Locked)

	status = f.do(t, http.MethodDelete, base+"/checkout", nil, &session)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "IDLE", session.State)
}

func TestPOSCheckoutAndTextReceipt(t *testing.T) {
	f := newAPIFixture(t)
	base := "/api/pos/carts/till-1"
	p := f.products[2]

	f.do(t, http.MethodPost, base+"/items", api.AddItemRequest{ProductID: p.ID.String(), Quantity: 3}, nil)
	f.do(t, http.MethodPost, base+"/checkout", nil, nil)

	var session api.SessionDTO
	f.do(t, http.MethodPost, base+"/checkout/proceed", nil, &session)
	assert.Equal(t, "AWAITING_PAYMENT_METHOD", session.State)

	f.do(t, http.MethodPut, base+"/checkout/payment-method", api.PaymentMethodRequest{Method: "cash"}, nil)
	status := f.do(t, http.MethodPost, base+"/checkout/submit", nil, nil)
	require.Equal(t, http.StatusAccepted, status)

	require.Eventually(t, func() bool {
		var s api.SessionDTO
		f.do(t, http.MethodGet, base+"/checkout", nil, &s)
		session = s
		return s.State == "SUCCESS"
	}, time.Second, 5*time.Millisecond)

	subtotal := p.Price.Amount * 3
	require.NotNil(t, session.Breakdown)
	assert.Equal(t, subtotal+subtotal/10, session.Breakdown.Total.Amount)

	resp, err := f.server.Client().Get(f.server.URL + "/api/receipts/" + session.ReceiptID + "?format=text")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "PEMBAYARAN BERHASIL")
	assert.Contains(t, string(body), p.Name)
	assert.Contains(t, string(body), "CASH")

	var errResp api.ErrorResponse
	status = f.do(t, http.MethodGet, "/api/receipts/NE-MISSING", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, status)
	status = f.do(t, http.MethodGet, "/api/receipts/bogus", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDenyAndRetry(t *testing.T) {
	f := newAPIFixture(t)
	base := "/api/storefront/carts/shopper-3"

	f.do(t, http.MethodPost, base+"/items", api.AddItemRequest{ProductID: f.products[0].ID.String(), Quantity: 1}, nil)
	f.do(t, http.MethodPost, base+"/checkout", nil, nil)
	f.do(t, http.MethodPost, base+"/checkout/proceed", nil, nil)
	f.do(t, http.MethodPut, base+"/checkout/payment-method", api.PaymentMethodRequest{Method: "qris"}, nil)
	f.do(t, http.MethodPost, base+"/checkout/submit", nil, nil)

	var session api.SessionDTO
	status := f.do(t, http.MethodPost, base+"/checkout/deny", api.DenyRequest{Reason: "expired"}, &session)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "FAILED", session.State)
	assert.Equal(t, "expired", session.FailureReason)

	status = f.do(t, http.MethodPost, base+"/checkout/retry", nil, &session)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CART_REVIEW", session.State)

	var errResp api.ErrorResponse
	status = f.do(t, http.MethodPost, base+"/checkout/confirm", nil, &errResp)
	assert.Equal(t, http.StatusConflict, status)
}
