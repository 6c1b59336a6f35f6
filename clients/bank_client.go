package clients

import (
	// Go Internal Packages
	"context"
	"net/http"
	"net/url"
	"time"

	// Local Packages
	errors "bgmock-twin/errors"
	models "bgmock-twin/models"
	utils "bgmock-twin/utils"

	// External Packages
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BankClient talks to one bank service.
type BankClient struct {
	rest
	Name           string
	ClearingNumber string
	sleep          utils.SleepFunc
}

func NewBankClient(name, baseURL, clearingNumber string, httpClient *http.Client, recorder CallRecorder, logger *zap.Logger) *BankClient {
	return &BankClient{
		rest:           newRest(baseURL, httpClient, recorder, logger.With(zap.String("bank", name))),
		Name:           name,
		ClearingNumber: clearingNumber,
		sleep:          utils.Sleep,
	}
}

func (c *BankClient) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	var created models.Account
	_, err := c.do(ctx, http.MethodPost, "/api/accounts", "/api/accounts", nil, account, &created)
	return created, err
}

func (c *BankClient) GetAccount(ctx context.Context, id string) (models.Account, error) {
	var account models.Account
	_, err := c.do(ctx, http.MethodGet, "/api/accounts/"+url.PathEscape(id), "/api/accounts/{id}", nil, nil, &account)
	return account, err
}

// DeleteAccount removes the account with the given account number.
func (c *BankClient) DeleteAccount(ctx context.Context, accountNumber string) error {
	_, err := c.do(ctx, http.MethodDelete, "/bank/account/"+url.PathEscape(accountNumber), "/bank/account/{accountNumber}", nil, nil, nil)
	return err
}

func (c *BankClient) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	_, err := c.do(ctx, http.MethodGet, "/api/accounts", "/api/accounts", nil, nil, &accounts)
	return accounts, err
}

// AdjustBalance adds amount (which may be negative) to the account balance.
func (c *BankClient) AdjustBalance(ctx context.Context, id string, amount decimal.Decimal) error {
	query := url.Values{"amount": {amount.String()}}
	_, err := c.do(ctx, http.MethodPost, "/api/accounts/"+url.PathEscape(id)+"/adjust", "/api/accounts/{id}/adjust", query, nil, nil)
	return err
}

func (c *BankClient) CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	var created models.Transaction
	_, err := c.do(ctx, http.MethodPost, "/api/transactions", "/api/transactions", nil, tx, &created)
	return created, err
}

func (c *BankClient) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	_, err := c.do(ctx, http.MethodGet, "/api/transactions", "/api/transactions", nil, nil, &txs)
	return txs, err
}

// CreateOutgoing starts an interbank transfer from this bank.
func (c *BankClient) CreateOutgoing(ctx context.Context, req models.OutgoingTransactionRequest) (models.OutgoingTransaction, error) {
	var created models.OutgoingTransaction
	_, err := c.do(ctx, http.MethodPost, "/bank/transaction/outgoing", "/bank/transaction/outgoing", nil, req, &created)
	if err == nil && created.TxID == "" {
		err = errors.MalformedErr("POST /bank/transaction/outgoing", errors.EmptyParamErr("transactionId"))
	}
	return created, err
}

func (c *BankClient) GetOutgoing(ctx context.Context, id string) (models.OutgoingTransaction, error) {
	var tx models.OutgoingTransaction
	_, err := c.do(ctx, http.MethodGet, "/bank/transaction/outgoing/"+url.PathEscape(id), "/bank/transaction/outgoing/{id}", nil, nil, &tx)
	return tx, err
}

// WaitForTransaction polls the outgoing transaction until it leaves PENDING.
// Exceeding timeout yields a Timeout error; request errors are returned as is.
func (c *BankClient) WaitForTransaction(ctx context.Context, id string, timeout, pollInterval time.Duration) (models.OutgoingTransaction, error) {
	deadline := time.Now().Add(timeout)
	for {
		tx, err := c.GetOutgoing(ctx, id)
		if err != nil {
			return tx, err
		}
		if tx.Status != models.StatusPending {
			return tx, nil
		}
		if !time.Now().Before(deadline) {
			return tx, errors.TimeoutErr("waiting for transaction " + id)
		}
		if err := c.sleep(ctx, pollInterval); err != nil {
			return tx, err
		}
	}
}

func (c *BankClient) Health(ctx context.Context) bool {
	return c.health(ctx)
}
