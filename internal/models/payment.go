package models

import "time"

// PaymentState is the lifecycle of a payment row, distinct from the
// enrollment-level PaymentStatus it drives.
type PaymentState string

// Possible payment states.
const (
	PaymentStatePending   PaymentState = "PENDING"
	PaymentStateSucceeded PaymentState = "SUCCEEDED"
	PaymentStateFailed    PaymentState = "FAILED"
)

// Payment links a Stripe payment intent to an enrollment. The intent id is
// the reference by which webhook confirmations locate the enrollment.
type Payment struct {
	ID                    string       `db:"id" json:"id"`
	StudioID              string       `db:"studio_id" json:"studio_id"`
	EnrollmentID          *string      `db:"enrollment_id" json:"enrollment_id,omitempty"`
	StudentID             string       `db:"student_id" json:"student_id"`
	AmountILS             float64      `db:"amount_ils" json:"amount_ils"`
	Description           string       `db:"description" json:"description"`
	Status                PaymentState `db:"status" json:"status"`
	StripePaymentIntentID string       `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id"`
	StripeChargeID        *string      `db:"stripe_charge_id" json:"stripe_charge_id,omitempty"`
	PaidDate              *time.Time   `db:"paid_date" json:"paid_date,omitempty"`
	CreatedAt             time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time    `db:"updated_at" json:"updated_at"`
}
