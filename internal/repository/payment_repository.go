package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classly-app/classly-api/internal/models"
)

// PaymentRepository handles persistence of payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, studio_id, enrollment_id, student_id, amount_ils, description,
        status, stripe_payment_intent_id, stripe_charge_id, paid_date, created_at, updated_at`

// Create persists a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if payment.Status == "" {
		payment.Status = models.PaymentStatePending
	}
	const query = `INSERT INTO payments (id, studio_id, enrollment_id, student_id, amount_ils,
        description, status, stripe_payment_intent_id, stripe_charge_id, paid_date, created_at, updated_at)
        VALUES (:id, :studio_id, :enrollment_id, :student_id, :amount_ils, :description,
        :status, :stripe_payment_intent_id, :stripe_charge_id, :paid_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByIntentID locates the payment row holding a Stripe intent reference.
func (r *PaymentRepository) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE stripe_payment_intent_id = $1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, intentID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkSucceeded records a confirmed payment.
func (r *PaymentRepository) MarkSucceeded(ctx context.Context, intentID string, chargeID *string, paidAt time.Time) error {
	const query = `UPDATE payments SET status = $2, stripe_charge_id = $3, paid_date = $4, updated_at = $5
        WHERE stripe_payment_intent_id = $1`
	if _, err := r.db.ExecContext(ctx, query, intentID, models.PaymentStateSucceeded, chargeID, paidAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark payment succeeded: %w", err)
	}
	return nil
}

// MarkFailed records a failed payment attempt.
func (r *PaymentRepository) MarkFailed(ctx context.Context, intentID string) error {
	const query = `UPDATE payments SET status = $2, updated_at = $3 WHERE stripe_payment_intent_id = $1`
	if _, err := r.db.ExecContext(ctx, query, intentID, models.PaymentStateFailed, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	return nil
}

// ListByStudio returns the payment history for a studio, newest first.
func (r *PaymentRepository) ListByStudio(ctx context.Context, studioID string) ([]models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE studio_id = $1 ORDER BY created_at DESC`, paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studioID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// MonthlyRevenue sums succeeded payments since the start of the current month.
func (r *PaymentRepository) MonthlyRevenue(ctx context.Context, studioID string, monthStart time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount_ils), 0) FROM payments
        WHERE studio_id = $1 AND status = $2 AND created_at >= $3`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, studioID, models.PaymentStateSucceeded, monthStart); err != nil {
		return 0, fmt.Errorf("monthly revenue: %w", err)
	}
	return total, nil
}
