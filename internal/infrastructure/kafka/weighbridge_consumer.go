package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	"github.com/slspinola/bee2waste-sub002/pkg/kafka"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
)

// readingSchema validates raw weighbridge samples before they enter the
// cache. Scales are field devices; malformed frames happen.
const readingSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["deviceId", "weightKg", "stable", "timestamp"],
  "properties": {
    "deviceId": {"type": "string", "minLength": 1},
    "weightKg": {"type": "number", "minimum": 0},
    "stable": {"type": "boolean"},
    "timestamp": {"type": "string", "format": "date-time"}
  }
}`

// ReadingCache keeps the latest sample per scale device.
type ReadingCache struct {
	mu       sync.RWMutex
	readings map[string]domain.ScaleReading
}

// NewReadingCache creates an empty cache.
func NewReadingCache() *ReadingCache {
	return &ReadingCache{readings: make(map[string]domain.ScaleReading)}
}

// Latest returns the newest reading for a device, if one arrived.
func (c *ReadingCache) Latest(deviceID string) (domain.ScaleReading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reading, ok := c.readings[deviceID]
	return reading, ok
}

// put stores a reading, keeping only the newest per device.
func (c *ReadingCache) put(reading domain.ScaleReading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.readings[reading.DeviceID]; ok && current.Timestamp.After(reading.Timestamp) {
		return
	}
	c.readings[reading.DeviceID] = reading
}

type readingPayload struct {
	DeviceID  string    `json:"deviceId"`
	WeightKg  float64   `json:"weightKg"`
	Stable    bool      `json:"stable"`
	Timestamp time.Time `json:"timestamp"`
}

// WeighbridgeConsumer feeds the reading cache from the weighbridge topic.
type WeighbridgeConsumer struct {
	cache  *ReadingCache
	schema *jsonschema.Schema
	logger *logging.Logger
}

// NewWeighbridgeConsumer compiles the reading schema and wires the handler
// onto the weighbridge topic.
func NewWeighbridgeConsumer(consumer *kafka.Consumer, cache *ReadingCache, logger *logging.Logger) (*WeighbridgeConsumer, error) {
	compiler := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(readingSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reading schema: %w", err)
	}
	if err := compiler.AddResource("weighbridge-reading.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add reading schema: %w", err)
	}
	schema, err := compiler.Compile("weighbridge-reading.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile reading schema: %w", err)
	}

	wc := &WeighbridgeConsumer{
		cache:  cache,
		schema: schema,
		logger: logger,
	}
	consumer.SubscribeAll(kafka.Topics.WeighbridgeReadings, wc.handleReading)
	return wc, nil
}

// handleReading validates one raw sample and stores it in the cache.
// Invalid frames are logged and dropped, never retried.
func (wc *WeighbridgeConsumer) handleReading(ctx context.Context, key, value []byte, headers map[string]string) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(value))
	if err != nil {
		wc.logger.Warn("Dropping unparseable weighbridge frame", "error", err.Error())
		return nil
	}
	if err := wc.schema.Validate(doc); err != nil {
		wc.logger.Warn("Dropping invalid weighbridge frame", "error", err.Error())
		return nil
	}

	var payload readingPayload
	if err := json.Unmarshal(value, &payload); err != nil {
		wc.logger.Warn("Dropping undecodable weighbridge frame", "error", err.Error())
		return nil
	}

	wc.cache.put(domain.ScaleReading{
		DeviceID:  payload.DeviceID,
		WeightKg:  payload.WeightKg,
		Stable:    payload.Stable,
		Timestamp: payload.Timestamp,
	})
	wc.logger.WeighbridgeReading(payload.DeviceID, payload.WeightKg, payload.Stable)
	return nil
}
