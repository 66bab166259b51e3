package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"caixa/internal/core"
)

// ReportRequestMessage asks the worker to build and export the report for
// Filter. The filter is already resolved (year, projection and "now" set) by
// the publisher so the worker builds exactly what was requested.
type ReportRequestMessage struct {
	RequestID uuid.UUID   `json:"requestId"`
	Filter    core.Filter `json:"filter"`
	Timestamp time.Time   `json:"timestamp"`
}

var errMissingRequestID = errors.New("report request without request id")

// NewReportRequestMessage creates a request message stamped with the current time.
func NewReportRequestMessage(id uuid.UUID, f core.Filter) *ReportRequestMessage {
	return &ReportRequestMessage{
		RequestID: id,
		Filter:    f,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON decodes and sanity-checks a message body.
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RequestID == uuid.Nil {
		return nil, errMissingRequestID
	}
	return &msg, nil
}
