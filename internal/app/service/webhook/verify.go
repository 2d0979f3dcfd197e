package webhook

import (
	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/lumifin/reconciler/pkg/config"
)

// Verifier authenticates a raw webhook payload against its signature
// header and decodes the event envelope.
type Verifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}

type signatureVerifier struct {
	secret string
}

func NewVerifier(cfg *config.Config) Verifier {
	return &signatureVerifier{secret: cfg.Stripe.WebhookSecret}
}

func (v *signatureVerifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	return stripewebhook.ConstructEventWithOptions(payload, signature, v.secret, stripewebhook.ConstructEventOptions{
		// The processor occasionally sends events built with a newer API
		// version than the pinned SDK; signature checking is unaffected.
		IgnoreAPIVersionMismatch: true,
	})
}
