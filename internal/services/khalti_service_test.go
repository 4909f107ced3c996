package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bussewa/booking-backend/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKhaltiService(baseURL string) *KhaltiService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	service := NewKhaltiService(&config.PaymentConfig{
		Environment: "sandbox",
		SecretKey:   "test-secret-key",
		ReturnURL:   "https://bussewa.example.com/payment/callback",
		WebsiteURL:  "https://bussewa.example.com",
	}, logger)
	service.baseURL = baseURL
	return service
}

func initiateParams() *KhaltiInitiateParams {
	return &KhaltiInitiateParams{
		AmountPaisa:       130000,
		PurchaseOrderID:   "BK-17600000001234",
		PurchaseOrderName: "Bus ticket - Kathmandu - Pokhara",
		CustomerName:      "Sita Sharma",
		CustomerPhone:     "+9779812345678",
	}
}

func TestKhaltiInitiate(t *testing.T) {
	t.Run("Sends Authenticated Request", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotBody map[string]interface{}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"pidx":"HT6o6PEZRWFJ5ygavzHWd5","payment_url":"https://test-pay.khalti.com/?pidx=HT6o6PEZRWFJ5ygavzHWd5"}`))
		}))
		defer server.Close()

		service := newKhaltiService(server.URL)
		response, err := service.Initiate(initiateParams())
		require.NoError(t, err)

		assert.Equal(t, "/epayment/initiate/", gotPath)
		assert.Equal(t, "Key test-secret-key", gotAuth)
		assert.Equal(t, float64(130000), gotBody["amount"])
		assert.Equal(t, "BK-17600000001234", gotBody["purchase_order_id"])
		assert.Equal(t, "https://bussewa.example.com/payment/callback", gotBody["return_url"])
		assert.Equal(t, "https://bussewa.example.com", gotBody["website_url"])

		customer, ok := gotBody["customer_info"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Sita Sharma", customer["name"])

		assert.Equal(t, "HT6o6PEZRWFJ5ygavzHWd5", response.Pidx)
		assert.Equal(t, "https://test-pay.khalti.com/?pidx=HT6o6PEZRWFJ5ygavzHWd5", response.PaymentURL)
	})

	t.Run("Rejects Empty Gateway Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		service := newKhaltiService(server.URL)
		_, err := service.Initiate(initiateParams())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no pidx")
	})

	t.Run("Surfaces Gateway Errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"Amount should be greater than Rs. 10"}`))
		}))
		defer server.Close()

		service := newKhaltiService(server.URL)
		_, err := service.Initiate(initiateParams())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400")
		assert.Contains(t, err.Error(), "Amount should be greater")
	})

	t.Run("Requires Secret Key", func(t *testing.T) {
		service := newKhaltiService("http://127.0.0.1:0")
		service.config.SecretKey = ""

		_, err := service.Initiate(initiateParams())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing secret key")
	})
}

func TestKhaltiLookup(t *testing.T) {
	t.Run("Decodes Status And Keeps Raw Payload", func(t *testing.T) {
		payload := `{"pidx":"HT6o6PEZRWFJ5ygavzHWd5","total_amount":130000,"status":"Completed","transaction_id":"GFq9PFS7b2iYvL8Lir9oXe","fee":3900,"refunded":false}`

		var gotBody map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/epayment/lookup/", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(payload))
		}))
		defer server.Close()

		service := newKhaltiService(server.URL)
		response, err := service.Lookup("HT6o6PEZRWFJ5ygavzHWd5")
		require.NoError(t, err)

		assert.Equal(t, "HT6o6PEZRWFJ5ygavzHWd5", gotBody["pidx"])
		assert.Equal(t, KhaltiStatusCompleted, response.Status)
		assert.Equal(t, "GFq9PFS7b2iYvL8Lir9oXe", response.TransactionID)
		assert.Equal(t, int64(130000), response.TotalAmount)
		assert.JSONEq(t, payload, string(response.Raw))
	})

	t.Run("Passes Unknown Statuses Through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pidx":"abc","status":"Partially refunded"}`))
		}))
		defer server.Close()

		service := newKhaltiService(server.URL)
		response, err := service.Lookup("abc")
		require.NoError(t, err)
		assert.Equal(t, "Partially refunded", response.Status)
	})
}
