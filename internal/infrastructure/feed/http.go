// Package feed адаптеры источников сделок. Агрегатор отдаёт цены в долларах,
// наружу пакет выдаёт нормализованные entity.Deal с центами и абсолютным
// сроком годности.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/pkg/contextx"
	"trip_sentinel/pkg/httpx"
	"trip_sentinel/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// wireDeal сделка в формате агрегатора: денежные поля в долларах.
type wireDeal struct {
	ID               string  `json:"id"`
	Destination      string  `json:"destination"`
	Country          string  `json:"country"`
	Price            float64 `json:"price"`
	MarketPrice      float64 `json:"marketPrice"`
	FlightPrice      float64 `json:"flightPrice"`
	HotelPrice       float64 `json:"hotelPrice"`
	ExperiencePrice  float64 `json:"experiencePrice"`
	Confidence       int     `json:"confidence"`
	Duration         string  `json:"duration"`
	AutoBookEligible bool    `json:"autoBookEligible"`
	ExpiresAt        string  `json:"expiresAt"`
}

type wireDealsResponse struct {
	Deals []wireDeal `json:"deals"`
}

// HTTPSource клиент HTTP-агрегатора сделок.
type HTTPSource struct {
	client  *http.Client
	baseURL string
}

// NewHTTPSource собирает клиента с цепочкой round tripper-ов: bearer-авторизация
// поверх логирования с маскированием чувствительных полей.
func NewHTTPSource(baseURL string, authenticator *Authenticator, timeout time.Duration) *HTTPSource {
	transport := httpx.NewAuthBearerRoundTripper(
		httpx.NewLoggingRoundTripper(
			http.DefaultTransport,
			httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
		),
		authenticator,
	)

	return &HTTPSource{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL: baseURL,
	}
}

// FetchDeals забирает текущий список сделок агрегатора.
func (s *HTTPSource) FetchDeals(ctx context.Context) ([]entity.Deal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/travel-deals", nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator returned %d", resp.StatusCode)
	}

	var wire wireDealsResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("json.Decode: %w", err)
	}

	deals := make([]entity.Deal, 0, len(wire.Deals))

	for _, raw := range wire.Deals {
		deal, err := normalizeDeal(raw)
		if err != nil {
			// Одна битая запись не должна ронять весь батч.
			logger(ctx).Warn("malformed deal in feed",
				slog.String(logx.FieldDealID, raw.ID),
				logx.Error(err),
			)
			continue
		}

		deals = append(deals, deal)
	}

	return deals, nil
}

func normalizeDeal(raw wireDeal) (entity.Deal, error) {
	expiresAt, err := time.Parse(time.RFC3339, raw.ExpiresAt)
	if err != nil {
		return entity.Deal{}, fmt.Errorf("time.Parse expiresAt: %w", err)
	}

	return entity.Deal{
		ID:               raw.ID,
		Destination:      raw.Destination,
		Country:          raw.Country,
		Price:            dollarsToCents(raw.Price),
		MarketPrice:      dollarsToCents(raw.MarketPrice),
		FlightPrice:      dollarsToCents(raw.FlightPrice),
		HotelPrice:       dollarsToCents(raw.HotelPrice),
		ExperiencePrice:  dollarsToCents(raw.ExperiencePrice),
		Confidence:       raw.Confidence,
		Duration:         raw.Duration,
		AutoBookEligible: raw.AutoBookEligible,
		ExpiresAt:        expiresAt,
	}, nil
}

func dollarsToCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}
