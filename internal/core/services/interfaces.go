package services

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentGateway is the mobile-money collaborator used by the savings workflow.
// InitiateTransaction returns the gateway's transaction reference. Errors wrap
// domain.ErrGatewayTimeout or domain.ErrGatewayRejected.
type PaymentGateway interface {
	InitiateTransaction(ctx context.Context, payer string, amount decimal.Decimal, reference string) (string, error)
}

// Mailer sends one plain-text email
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
