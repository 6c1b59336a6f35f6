package models

import (
	// Go Internal Packages
	"encoding/json"
	"time"

	// External Packages
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending TransactionStatus = "PENDING"
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

// ParseStatus returns the status named by s and whether it is known.
func ParseStatus(s string) (TransactionStatus, bool) {
	switch TransactionStatus(s) {
	case StatusPending, StatusSuccess, StatusFailed:
		return TransactionStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether no further transition is expected.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Transaction mirrors the transaction event exchanged with the bank services.
type Transaction struct {
	TxID               string            `json:"transactionId"`
	FromAccountID      *string           `json:"fromAccountId"`
	FromClearingNumber string            `json:"fromClearingNumber"`
	FromAccountNumber  string            `json:"fromAccountNumber"`
	ToBankgoodNumber   string            `json:"toBankgoodNumber"`
	ToClearingNumber   *string           `json:"toClearingNumber"`
	ToAccountNumber    *string           `json:"toAccountNumber"`
	Amount             decimal.Decimal   `json:"amount"`
	Status             TransactionStatus `json:"status"`
	CreatedAt          Timestamp         `json:"createdAt"`
	UpdatedAt          Timestamp         `json:"updatedAt"`
}

// NewTransaction builds a pending transaction with a fresh id.
func NewTransaction(fromClearing, fromAccount, toBankgood string, amount decimal.Decimal, now time.Time) Transaction {
	return Transaction{
		TxID:               uuid.NewString(),
		FromClearingNumber: fromClearing,
		FromAccountNumber:  fromAccount,
		ToBankgoodNumber:   toBankgood,
		Amount:             amount,
		Status:             StatusPending,
		CreatedAt:          NewTimestamp(now),
		UpdatedAt:          NewTimestamp(now),
	}
}

// MarshalJSON writes the amount as a JSON number.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain: plain(t), Amount: json.Number(t.Amount.String())})
}

type TransactionResponse struct {
	TxID    string            `json:"transactionId"`
	Status  TransactionStatus `json:"status"`
	Message string            `json:"message"`
}

// StageEvent is the minimal shape of a message on any of the flow-stage topics.
type StageEvent struct {
	TxID    string `json:"transactionId"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

type Account struct {
	AccountID     string          `json:"accountId"`
	AccountNumber string          `json:"accountNumber"`
	AccountHolder string          `json:"accountHolder"`
	Balance       decimal.Decimal `json:"balance"`
	Version       *int64          `json:"version,omitempty"`
	CreatedAt     Timestamp       `json:"createdAt"`
	UpdatedAt     Timestamp       `json:"updatedAt"`
}

// MarshalJSON writes the balance as a JSON number.
func (a Account) MarshalJSON() ([]byte, error) {
	type plain Account
	return json.Marshal(struct {
		plain
		Balance json.Number `json:"balance"`
	}{plain: plain(a), Balance: json.Number(a.Balance.String())})
}

// BankMapping routes a bankgood number to a clearing and account number.
type BankMapping struct {
	AccountNumber  string `json:"accountNumber"`
	ClearingNumber string `json:"clearingNumber"`
	BankgoodNumber string `json:"bankgoodNumber"`
	BankName       string `json:"bankName"`
}

// OutgoingTransactionRequest is the body of POST /bank/transaction/outgoing.
type OutgoingTransactionRequest struct {
	FromAccountNumber string          `json:"fromAccountNumber"`
	ToBankgoodNumber  string          `json:"toBankgoodNumber"`
	Amount            decimal.Decimal `json:"amount"`
}

// OutgoingTransaction is the bank's view of an outgoing transfer.
type OutgoingTransaction struct {
	TxID    string            `json:"transactionId"`
	Status  TransactionStatus `json:"status"`
	Message string            `json:"message,omitempty"`
}
