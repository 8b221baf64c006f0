package kafka

import (
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack

	// Consumer settings
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	CommitTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "intake-service",
		ClientID:      "intake-service",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,

		MinBytes:      1,
		MaxBytes:      10e6,
		MaxWait:       500 * time.Millisecond,
		CommitTimeout: 5 * time.Second,
	}
}

// Topics contains the park platform topic names
var Topics = struct {
	// Domain event topics
	IntakeEvents  string
	StorageEvents string
	StockEvents   string

	// Inbound device streams
	WeighbridgeReadings string
}{
	IntakeEvents:  "park.intake.events",
	StorageEvents: "park.storage.events",
	StockEvents:   "park.stock.events",

	WeighbridgeReadings: "park.weighbridge.readings",
}

// TopicConfig holds configuration for a Kafka topic
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

// DefaultTopicConfigs returns the per-topic provisioning defaults. Stock
// events are the audit trail, so they keep a longer retention.
func DefaultTopicConfigs() []TopicConfig {
	const day = 24 * 60 * 60 * 1000
	return []TopicConfig{
		{Name: Topics.IntakeEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: Topics.StorageEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: Topics.StockEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 90 * day},
		{Name: Topics.WeighbridgeReadings, Partitions: 12, ReplicationFactor: 3, RetentionMs: 1 * day},
	}
}
