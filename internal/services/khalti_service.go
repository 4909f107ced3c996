package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bussewa/booking-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// KhaltiEnvironmentURLs maps environment names to their ePayment API bases
var KhaltiEnvironmentURLs = map[string]string{
	"sandbox":    "https://dev.khalti.com/api/v2",
	"production": "https://khalti.com/api/v2",
}

// Khalti lookup statuses the verification path dispatches on
const (
	KhaltiStatusCompleted    = "Completed"
	KhaltiStatusPending      = "Pending"
	KhaltiStatusInitiated    = "Initiated"
	KhaltiStatusRefunded     = "Refunded"
	KhaltiStatusExpired      = "Expired"
	KhaltiStatusUserCanceled = "User canceled"
)

// GatewayClient abstracts the payment gateway for testing
type GatewayClient interface {
	Initiate(params *KhaltiInitiateParams) (*KhaltiInitiateResponse, error)
	Lookup(pidx string) (*KhaltiLookupResponse, error)
}

// KhaltiService handles payment gateway integration with Khalti ePayment
type KhaltiService struct {
	config  *config.PaymentConfig
	logger  *logrus.Logger
	client  *http.Client
	baseURL string // overrides the environment URL when set, for tests
}

// KhaltiInitiateParams contains everything needed to start a payment
type KhaltiInitiateParams struct {
	AmountPaisa       int64
	PurchaseOrderID   string
	PurchaseOrderName string
	CustomerName      string
	CustomerEmail     string
	CustomerPhone     string
}

// khaltiInitiateRequest is the wire format for epayment/initiate
type khaltiInitiateRequest struct {
	ReturnURL         string             `json:"return_url"`
	WebsiteURL        string             `json:"website_url"`
	Amount            int64              `json:"amount"`
	PurchaseOrderID   string             `json:"purchase_order_id"`
	PurchaseOrderName string             `json:"purchase_order_name"`
	CustomerInfo      khaltiCustomerInfo `json:"customer_info"`
}

type khaltiCustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// KhaltiInitiateResponse is returned by epayment/initiate
type KhaltiInitiateResponse struct {
	Pidx       string     `json:"pidx"`
	PaymentURL string     `json:"payment_url"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// KhaltiLookupResponse is returned by epayment/lookup. Status is one of the
// KhaltiStatus constants; unknown values are passed through untouched.
type KhaltiLookupResponse struct {
	Pidx          string          `json:"pidx"`
	TotalAmount   int64           `json:"total_amount"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	Fee           int64           `json:"fee"`
	Refunded      bool            `json:"refunded"`
	Raw           json.RawMessage `json:"-"`
}

// NewKhaltiService creates a new Khalti payment service
func NewKhaltiService(cfg *config.PaymentConfig, logger *logrus.Logger) *KhaltiService {
	return &KhaltiService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *KhaltiService) endpointBase() string {
	if s.baseURL != "" {
		return s.baseURL
	}
	base, ok := KhaltiEnvironmentURLs[s.config.Environment]
	if !ok {
		base = KhaltiEnvironmentURLs["sandbox"]
	}
	return base
}

// Initiate registers a payment with Khalti and returns the redirect URL
func (s *KhaltiService) Initiate(params *KhaltiInitiateParams) (*KhaltiInitiateResponse, error) {
	if s.config.SecretKey == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing secret key")
	}

	request := &khaltiInitiateRequest{
		ReturnURL:         s.config.ReturnURL,
		WebsiteURL:        s.config.WebsiteURL,
		Amount:            params.AmountPaisa,
		PurchaseOrderID:   params.PurchaseOrderID,
		PurchaseOrderName: params.PurchaseOrderName,
		CustomerInfo: khaltiCustomerInfo{
			Name:  params.CustomerName,
			Email: params.CustomerEmail,
			Phone: params.CustomerPhone,
		},
	}

	s.logger.WithFields(logrus.Fields{
		"purchase_order_id": params.PurchaseOrderID,
		"amount_paisa":      params.AmountPaisa,
		"environment":       s.config.Environment,
	}).Info("Initiating Khalti payment")

	var response KhaltiInitiateResponse
	if _, err := s.post("/epayment/initiate/", request, &response); err != nil {
		return nil, err
	}

	if response.Pidx == "" || response.PaymentURL == "" {
		return nil, fmt.Errorf("gateway returned no pidx or payment URL")
	}

	return &response, nil
}

// Lookup fetches the authoritative state of a payment from Khalti
func (s *KhaltiService) Lookup(pidx string) (*KhaltiLookupResponse, error) {
	if s.config.SecretKey == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing secret key")
	}

	request := map[string]string{"pidx": pidx}

	var response KhaltiLookupResponse
	raw, err := s.post("/epayment/lookup/", request, &response)
	if err != nil {
		return nil, err
	}
	response.Raw = raw

	s.logger.WithFields(logrus.Fields{
		"pidx":   pidx,
		"status": response.Status,
	}).Info("Khalti lookup completed")

	return &response, nil
}

// post sends an authenticated JSON request and decodes the response body,
// which is also returned raw for audit storage
func (s *KhaltiService) post(path string, payload interface{}, out interface{}) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.endpointBase()+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+s.config.SecretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call Khalti endpoint")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(body),
		}).Error("Khalti returned an error")
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return body, nil
}
