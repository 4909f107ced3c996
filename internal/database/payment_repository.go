package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bussewa/booking-backend/internal/models"
	"github.com/google/uuid"
)

// PaymentRepository handles gateway payment records
type PaymentRepository struct {
	db DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment record in the initiated state
func (r *PaymentRepository) Create(payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusInitiated
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	payment.UpdatedAt = payment.CreatedAt

	query := `
		INSERT INTO payments (
			id, ticket_id, pidx, purchase_order_id, amount, status,
			transaction_id, raw_payload, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(query,
		payment.ID, payment.TicketID, payment.Pidx, payment.PurchaseOrderID,
		payment.Amount, payment.Status, payment.TransactionID, payment.RawPayload,
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByPidx fetches a payment by the gateway transaction handle
func (r *PaymentRepository) GetByPidx(pidx string) (*models.Payment, error) {
	var payment models.Payment

	query := `
		SELECT id, ticket_id, pidx, purchase_order_id, amount, status,
		       transaction_id, raw_payload, created_at, updated_at
		FROM payments
		WHERE pidx = $1
	`

	err := r.db.Get(&payment, query, pidx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment by pidx: %w", err)
	}

	return &payment, nil
}

// MarkStatus records the verified gateway state along with the raw lookup
// payload for audit
func (r *PaymentRepository) MarkStatus(id string, status models.PaymentStatus, transactionID string, raw json.RawMessage) error {
	query := `
		UPDATE payments
		SET status = $1,
		    transaction_id = NULLIF($2, ''),
		    raw_payload = COALESCE($3, raw_payload),
		    updated_at = NOW()
		WHERE id = $4
	`

	if _, err := r.db.Exec(query, status, transactionID, raw, id); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	return nil
}

// SaveRawPayload stores a gateway response we did not recognize so the
// transaction can be reconciled by hand later
func (r *PaymentRepository) SaveRawPayload(id string, raw json.RawMessage) error {
	query := `UPDATE payments SET raw_payload = $1, updated_at = NOW() WHERE id = $2`

	if _, err := r.db.Exec(query, raw, id); err != nil {
		return fmt.Errorf("failed to save payment payload: %w", err)
	}

	return nil
}
