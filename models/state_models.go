package models

import (
	// Go Internal Packages
	"encoding/json"

	// External Packages
	"github.com/shopspring/decimal"
)

// Direction says whether the harness produced or consumed a bus message.
type Direction uint8

const (
	Received Direction = iota
	Sent
)

func (d Direction) String() string {
	if d == Sent {
		return "send"
	}
	return "receive"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type KafkaEvent struct {
	Timestamp Timestamp      `json:"timestamp"`
	Topic     string         `json:"topic"`
	Type      Direction      `json:"type"`
	Data      map[string]any `json:"data"`
}

type RestCall struct {
	Timestamp    Timestamp `json:"timestamp"`
	Method       string    `json:"method"`
	Endpoint     string    `json:"endpoint"`
	StatusCode   int       `json:"status_code"`
	ResponseTime float64   `json:"response_time"`
}

type Statistics struct {
	TotalTransactions      int64           `json:"total_transactions"`
	SuccessfulTransactions int64           `json:"successful_transactions"`
	FailedTransactions     int64           `json:"failed_transactions"`
	PendingTransactions    int64           `json:"pending_transactions"`
	TotalAmountTransferred decimal.Decimal `json:"total_amount_transferred"`
	KafkaMessagesSent      int64           `json:"kafka_messages_sent"`
	KafkaMessagesReceived  int64           `json:"kafka_messages_received"`
	RestCallsMade          int64           `json:"rest_calls_made"`
}

// MarshalJSON writes the transferred total as a JSON number.
func (s Statistics) MarshalJSON() ([]byte, error) {
	type plain Statistics
	return json.Marshal(struct {
		plain
		TotalAmountTransferred json.Number `json:"total_amount_transferred"`
	}{plain: plain(s), TotalAmountTransferred: json.Number(s.TotalAmountTransferred.String())})
}

// Snapshot is a point-in-time export of the mirrored state.
type Snapshot struct {
	Timestamp     Timestamp              `json:"timestamp"`
	Accounts      map[string]Account     `json:"accounts"`
	Transactions  map[string]Transaction `json:"transactions"`
	Statistics    Statistics             `json:"statistics"`
	ServiceHealth map[string]bool        `json:"service_health"`
}
