package models

import (
	"encoding/json"
	"time"
)

// PaymentStatus represents the state of a gateway payment record
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCanceled  PaymentStatus = "canceled"
)

// Payment records a Khalti ePayment transaction for a ticket. The pidx is
// the gateway's handle for the transaction and is the lookup key used when
// the client returns from the payment page.
type Payment struct {
	ID              string          `json:"id" db:"id"`
	TicketID        string          `json:"ticket_id" db:"ticket_id"`
	Pidx            string          `json:"pidx" db:"pidx"`
	PurchaseOrderID string          `json:"purchase_order_id" db:"purchase_order_id"`
	Amount          float64         `json:"amount" db:"amount"`
	Status          PaymentStatus   `json:"status" db:"status"`
	TransactionID   *string         `json:"transaction_id,omitempty" db:"transaction_id"`
	RawPayload      json.RawMessage `json:"raw_payload,omitempty" db:"raw_payload"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// InitiatePaymentRequest starts a gateway payment for a held reservation
type InitiatePaymentRequest struct {
	ReservationID string  `json:"reservation_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
}

// InitiatePaymentResponse returns the gateway redirect details
type InitiatePaymentResponse struct {
	PaymentURL string     `json:"payment_url"`
	Pidx       string     `json:"pidx"`
	TicketID   string     `json:"ticket_id"`
	BookingID  string     `json:"booking_id"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// VerifyPaymentRequest asks the server to reconcile a gateway transaction
type VerifyPaymentRequest struct {
	Pidx          string `json:"pidx" binding:"required"`
	ReservationID string `json:"reservation_id"`
}

// VerifyPaymentResponse reports the reconciliation outcome. Invoice fields
// are populated only when the payment completed.
type VerifyPaymentResponse struct {
	Status        string   `json:"status"`
	Paid          bool     `json:"paid"`
	BookingID     string   `json:"booking_id,omitempty"`
	Amount        float64  `json:"amount,omitempty"`
	PassengerName string   `json:"passenger_name,omitempty"`
	SeatLabels    []string `json:"seat_labels,omitempty"`
}
