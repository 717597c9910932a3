package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCardGateway    PaymentMethod = "card-gateway"
	PaymentMethodWalletRedirect PaymentMethod = "wallet-redirect"
	PaymentMethodManualCard     PaymentMethod = "manual-card"
)

func (m PaymentMethod) RequiresCard() bool {
	return m == PaymentMethodCardGateway || m == PaymentMethodManualCard
}

type AttemptStatus string

const (
	AttemptStatusIdle       AttemptStatus = "idle"
	AttemptStatusValidating AttemptStatus = "validating"
	AttemptStatusProcessing AttemptStatus = "processing"
	AttemptStatusSucceeded  AttemptStatus = "succeeded"
	AttemptStatusFailed     AttemptStatus = "failed"
)

type PaymentAttempt struct {
	Method        PaymentMethod `json:"method"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Status        AttemptStatus `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CardBrand     string        `json:"card_brand,omitempty"`
	CardLastFour  string        `json:"card_last_four,omitempty"`
}
