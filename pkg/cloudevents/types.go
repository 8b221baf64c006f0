package cloudevents

import "time"

// ParkCloudEvent is the CloudEvents 1.0 envelope used on every park
// platform topic. Extension attributes carry the park-specific correlation
// context, prefixed per the CloudEvents extension naming rules.
type ParkCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Extension attributes
	CorrelationID string `json:"parkcorrelationid,omitempty"`
	ParkID        string `json:"parkid,omitempty"`
	EntryID       string `json:"parkentryid,omitempty"`
}

// Header names used when mapping the envelope to Kafka message headers.
const (
	HeaderType          = "ce-type"
	HeaderSource        = "ce-source"
	HeaderID            = "ce-id"
	HeaderSubject       = "ce-subject"
	HeaderSpecVersion   = "ce-specversion"
	HeaderCorrelationID = "ce-parkcorrelationid"
)

// KafkaHeaders returns the envelope attributes as Kafka headers so brokers
// and consumers can route without parsing the payload.
func (e *ParkCloudEvent) KafkaHeaders() map[string]string {
	headers := map[string]string{
		HeaderType:        e.Type,
		HeaderSource:      e.Source,
		HeaderID:          e.ID,
		HeaderSpecVersion: e.SpecVersion,
	}
	if e.Subject != "" {
		headers[HeaderSubject] = e.Subject
	}
	if e.CorrelationID != "" {
		headers[HeaderCorrelationID] = e.CorrelationID
	}
	return headers
}
