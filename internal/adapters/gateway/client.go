package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// HTTPGatewayClient talks to the gateway's transaction enquiry endpoint.
type HTTPGatewayClient struct {
	appID      string
	enquiryURL string
	signer     *Signer
	httpClient *http.Client
}

func NewGatewayClient(cfg config.GatewayConfig, signer *Signer) ports.GatewayPort {
	return &HTTPGatewayClient{
		appID:      cfg.AppID,
		enquiryURL: cfg.EnquiryURL,
		signer:     signer,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// enquiryResponse is the gateway's JSON reply. It carries the same signed fields as a callback.
type enquiryResponse struct {
	AppID          string `json:"rp_appId"`
	Currency       string `json:"rp_currency"`
	Amount         string `json:"rp_amount"`
	StatusCode     string `json:"rp_statusCode"`
	OrderID        string `json:"rp_orderId"`
	TransactionRef string `json:"rp_transactionRef"`
	Checksum       string `json:"rp_checksum"`
}

// Enquire asks the gateway for the current state of orderID. The result is returned
// unverified; the caller treats it like any other signed signal.
func (c *HTTPGatewayClient) Enquire(ctx context.Context, orderID, transactionRef string) (*domain.PaymentResult, error) {
	form := url.Values{}
	form.Set("appId", c.appID)
	form.Set("orderId", orderID)
	form.Set("checkSum", c.signer.EnquiryChecksum(orderID, transactionRef))
	if transactionRef != "" {
		form.Set("transactionRef", transactionRef)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.enquiryURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Message: "enquiry request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var er enquiryResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("error decoding enquiry response: %w", err)
	}

	return &domain.PaymentResult{
		AppID:          er.AppID,
		Currency:       er.Currency,
		Amount:         er.Amount,
		StatusCode:     er.StatusCode,
		OrderID:        er.OrderID,
		TransactionRef: er.TransactionRef,
		Checksum:       er.Checksum,
	}, nil
}
