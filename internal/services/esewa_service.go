package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ridehub/rental-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// EsewaService handles payment gateway integration with eSewa
type EsewaService struct {
	config config.EsewaConfig
	logger *logrus.Logger
	client *http.Client
}

// NewEsewaService creates a new eSewa payment service. The client timeout
// bounds the initiation call; a gateway that hangs is treated as a failed
// initiation by the caller.
func NewEsewaService(cfg config.EsewaConfig, timeout time.Duration, logger *logrus.Logger) *EsewaService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EsewaService{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

// InitiatePaymentParams contains all parameters needed to initiate a payment
type InitiatePaymentParams struct {
	ProductID string
	Amount    float64
}

// PaymentInitiation is the usable result of a successful gateway initiation
type PaymentInitiation struct {
	RedirectURL string
}

// EsewaStatusResponse is the gateway's answer to a transaction status query
type EsewaStatusResponse struct {
	ProductCode   string  `json:"product_code"`
	TransactionID string  `json:"transaction_uuid"`
	TotalAmount   float64 `json:"total_amount"`
	Status        string  `json:"status"` // "COMPLETE", "PENDING", "CANCELED", "NOT_FOUND"
}

// GenerateSignature creates the base64 HMAC-SHA256 signature eSewa expects
// over the amount, transaction id, and merchant code
func (s *EsewaService) GenerateSignature(amount, transactionID string) string {
	payload := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		amount, transactionID, s.config.MerchantID)

	mac := hmac.New(sha256.New, []byte(s.config.Secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// InitiatePayment posts the payment form to eSewa and returns the page the
// payer must be redirected to. Any response that does not yield a usable
// redirect URL is an initiation failure.
func (s *EsewaService) InitiatePayment(params *InitiatePaymentParams) (*PaymentInitiation, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing merchant credentials")
	}

	amount := fmt.Sprintf("%.2f", params.Amount)

	form := url.Values{}
	form.Set("amt", amount)
	form.Set("txAmt", "0")
	form.Set("psc", "0")
	form.Set("pdc", "0")
	form.Set("tAmt", amount)
	form.Set("pid", params.ProductID)
	form.Set("scd", s.config.MerchantID)
	form.Set("su", s.config.SuccessURL)
	form.Set("fu", s.config.FailureURL)
	form.Set("signature", s.GenerateSignature(amount, params.ProductID))

	s.logger.WithFields(logrus.Fields{
		"product_id": params.ProductID,
		"amount":     amount,
		"endpoint":   s.config.PaymentURL,
	}).Info("Initiating eSewa payment")

	resp, err := s.client.PostForm(s.config.PaymentURL, form)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call eSewa endpoint")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	// eSewa answers the form post with a redirect chain ending at the hosted
	// payment page; the final request URL is the page to send the payer to
	redirectURL := resp.Request.URL.String()
	if redirectURL == "" || redirectURL == s.config.PaymentURL {
		return nil, fmt.Errorf("payment initiation failed: no redirect URL returned")
	}

	s.logger.WithFields(logrus.Fields{
		"product_id":   params.ProductID,
		"redirect_url": redirectURL,
	}).Info("eSewa payment initiated successfully")

	return &PaymentInitiation{RedirectURL: redirectURL}, nil
}

// CheckStatus queries eSewa for the current status of a transaction
func (s *EsewaService) CheckStatus(productID string, amount float64) (*EsewaStatusResponse, error) {
	statusURL := fmt.Sprintf("%s?product_code=%s&total_amount=%.2f&transaction_uuid=%s",
		strings.TrimRight(s.config.StatusCheckURL, "/"),
		url.QueryEscape(s.config.MerchantID), amount, url.QueryEscape(productID))

	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"status_url": statusURL,
	}).Info("Checking eSewa payment status")

	resp, err := s.client.Get(statusURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status check returned status %d: %s", resp.StatusCode, string(body))
	}

	var statusResp EsewaStatusResponse
	if err := json.Unmarshal(body, &statusResp); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}

	return &statusResp, nil
}

// IsConfigured returns true if the gateway credentials are present
func (s *EsewaService) IsConfigured() bool {
	return s.config.MerchantID != "" && s.config.Secret != ""
}
