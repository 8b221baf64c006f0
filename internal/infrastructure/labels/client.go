package labels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/metrics"
	"github.com/slspinola/bee2waste-sub002/pkg/resilience"
)

// Client talks to the park label printing service. The printer is a flaky
// on-site appliance, so calls go through a circuit breaker and failures are
// soft: the caller logs and moves on.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewClient creates a label client for the given printer endpoint.
func NewClient(baseURL string, logger *logging.Logger, m *metrics.Registry) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(resilience.Config{
			Name: "label-printer",
		}, logger, m),
		logger: logger,
	}
}

type labelRequest struct {
	EntryID      string  `json:"entryId"`
	ParkID       string  `json:"parkId"`
	MaterialCode string  `json:"materialCode"`
	WeightKg     float64 `json:"weightKg"`
	ZoneCode     string  `json:"zoneCode"`
	LotNumber    string  `json:"lotNumber"`
}

// PrintLabel requests one material label for a stored allocation.
func (c *Client) PrintLabel(ctx context.Context, entry *domain.WasteEntry, allocation domain.StorageAllocation) error {
	payload, err := json.Marshal(labelRequest{
		EntryID:      entry.EntryID,
		ParkID:       entry.ParkID,
		MaterialCode: allocation.MaterialCode,
		WeightKg:     allocation.WeightKg,
		ZoneCode:     allocation.ZoneCode,
		LotNumber:    allocation.LotNumber,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal label request: %w", err)
	}

	_, err = c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/labels", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("label service returned %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
