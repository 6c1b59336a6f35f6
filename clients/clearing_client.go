package clients

import (
	// Go Internal Packages
	"context"
	"net/http"
	"net/url"

	// Local Packages
	models "bgmock-twin/models"

	// External Packages
	"go.uber.org/zap"
)

// ClearingClient manages bankgood routing on the clearing service.
type ClearingClient struct {
	rest
}

func NewClearingClient(baseURL string, httpClient *http.Client, recorder CallRecorder, logger *zap.Logger) *ClearingClient {
	return &ClearingClient{rest: newRest(baseURL, httpClient, recorder, logger.With(zap.String("service", "clearing")))}
}

func (c *ClearingClient) CreateBankMapping(ctx context.Context, mapping models.BankMapping) error {
	_, err := c.do(ctx, http.MethodPost, "/clearing/bank-mapping", "/clearing/bank-mapping", nil, mapping, nil)
	return err
}

func (c *ClearingClient) DeleteBankMapping(ctx context.Context, bankgoodNumber string) error {
	_, err := c.do(ctx, http.MethodDelete, "/clearing/bank-mapping/"+url.PathEscape(bankgoodNumber), "/clearing/bank-mapping/{bankgoodNumber}", nil, nil, nil)
	return err
}

func (c *ClearingClient) Health(ctx context.Context) bool {
	return c.health(ctx)
}
