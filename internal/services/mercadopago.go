package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MercadoPagoService talks to the Mercado Pago checkout API.
type MercadoPagoService struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewMercadoPagoService creates a MercadoPagoService.
func NewMercadoPagoService(baseURL, accessToken string) *MercadoPagoService {
	return &MercadoPagoService{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// PreferenceItem is one purchasable line in a checkout preference.
type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// PreferenceRequest carries what the handler knows about the purchase.
type PreferenceRequest struct {
	Items             []PreferenceItem
	PayerEmail        string
	ExternalReference string
}

// Preference is the subset of the provider response we use.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type preferencePayload struct {
	Items             []PreferenceItem `json:"items"`
	Payer             preferencePayer  `json:"payer"`
	ExternalReference string           `json:"external_reference,omitempty"`
}

type preferencePayer struct {
	Email string `json:"email,omitempty"`
}

// CreatePreference registers a checkout preference and returns its ID.
func (s *MercadoPagoService) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if s.accessToken == "" {
		return nil, fmt.Errorf("mercadopago access token not configured")
	}

	payload := preferencePayload{
		Items:             req.Items,
		Payer:             preferencePayer{Email: req.PayerEmail},
		ExternalReference: req.ExternalReference,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("mercadopago returned status %d: %s", resp.StatusCode, data)
	}

	var pref Preference
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return nil, err
	}
	if pref.ID == "" {
		return nil, fmt.Errorf("mercadopago returned no preference id")
	}

	return &pref, nil
}

// Payment is the subset of a payment lookup we act on.
type Payment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// GetPayment fetches a payment by id, used by the webhook to verify status
// server-side instead of trusting the notification body.
func (s *MercadoPagoService) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if s.accessToken == "" {
		return nil, fmt.Errorf("mercadopago access token not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mercadopago returned status %d", resp.StatusCode)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, err
	}

	return &payment, nil
}
