package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePreference(t *testing.T) {
	var got preferencePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer mp-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"id":         "pref-123",
			"init_point": "https://mp.example/checkout/pref-123",
		})
	}))
	defer srv.Close()

	svc := NewMercadoPagoService(srv.URL, "mp-token")
	pref, err := svc.CreatePreference(context.Background(), PreferenceRequest{
		Items: []PreferenceItem{
			{ID: "p1", Title: "Plotter A1", Quantity: 2, UnitPrice: 15000, CurrencyID: "COP"},
		},
		PayerEmail:        "ana@example.com",
		ExternalReference: "EPP-123456789",
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-123", pref.ID)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "COP", got.Items[0].CurrencyID)
	assert.Equal(t, "ana@example.com", got.Payer.Email)
	assert.Equal(t, "EPP-123456789", got.ExternalReference)
}

func TestCreatePreferenceProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid items"}`))
	}))
	defer srv.Close()

	svc := NewMercadoPagoService(srv.URL, "mp-token")
	_, err := svc.CreatePreference(context.Background(), PreferenceRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "invalid items")
}

func TestCreatePreferenceWithoutToken(t *testing.T) {
	svc := NewMercadoPagoService("http://unused", "")
	_, err := svc.CreatePreference(context.Background(), PreferenceRequest{})
	assert.Error(t, err)
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/42", r.URL.Path)
		// Mercado Pago serializes ids as numbers.
		w.Write([]byte(`{"id":42,"status":"approved","external_reference":"EPP-123456789"}`))
	}))
	defer srv.Close()

	svc := NewMercadoPagoService(srv.URL, "mp-token")
	payment, err := svc.GetPayment(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", payment.ID.String())
	assert.Equal(t, "approved", payment.Status)
	assert.Equal(t, "EPP-123456789", payment.ExternalReference)
}
