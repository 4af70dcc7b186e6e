// Package provider HTTP-клиент внешнего провайдера бронирования.
package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"trip_sentinel/internal/domain/service/booking"
	"trip_sentinel/pkg/httpx"
	"trip_sentinel/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type bookingRequest struct {
	DealID string `json:"dealId"`
	Price  int64  `json:"price"`
}

type bookingResponse struct {
	Status string `json:"status"` // confirmed | rejected
	Reason string `json:"reason"`
}

// HTTPProvider реализует booking.Provider поверх REST API провайдера.
// Идемпотентность ретраев держится на заголовке Idempotency-Key: повторный
// запрос с тем же ключом возвращает результат первой попытки.
type HTTPProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		client: &http.Client{
			Transport: httpx.NewLoggingRoundTripper(
				http.DefaultTransport,
				httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
			),
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (p *HTTPProvider) AttemptBooking(
	ctx context.Context,
	attemptID, dealID string,
	price int64,
) (booking.ProviderResult, error) {
	body, err := json.Marshal(bookingRequest{DealID: dealID, Price: price})
	if err != nil {
		return booking.ProviderResult{}, fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/bookings", bytes.NewReader(body))
	if err != nil {
		return booking.ProviderResult{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", attemptID)
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return booking.ProviderResult{}, fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return booking.ProviderResult{}, fmt.Errorf("provider returned %d", resp.StatusCode)
	}

	var result bookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return booking.ProviderResult{}, fmt.Errorf("json.Decode: %w", err)
	}

	return booking.ProviderResult{
		Committed: result.Status == "confirmed",
		Reason:    result.Reason,
	}, nil
}

func (p *HTTPProvider) CancelBooking(ctx context.Context, attemptID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/v1/bookings/"+attemptID, nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	// 404 означает, что брони ещё нет: отменять нечего.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}

	return nil
}
