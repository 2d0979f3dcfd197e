package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"

	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/faults"
	"github.com/lumifin/reconciler/pkg/metrics"
)

func TestRouteFor(t *testing.T) {
	tests := []struct {
		kind stripe.EventType
		want action
	}{
		{"checkout.session.completed", actionCheckout},
		{"invoice.paid", actionInvoicePaid},
		{"invoice.payment_failed", actionInvoiceFailed},
		{"customer.subscription.updated", actionSubscriptionSync},
		{"customer.subscription.deleted", actionSubscriptionDelete},
		{"charge.refunded", actionIgnore},
		{"payment_intent.succeeded", actionIgnore},
		{"", actionIgnore},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, routeFor(tt.kind), "kind %q", tt.kind)
	}
}

func TestInvoiceSubscriptionID(t *testing.T) {
	assert.Empty(t, invoiceSubscriptionID(&stripe.Invoice{}))

	oneTime := &stripe.Invoice{Lines: &stripe.InvoiceLineItemList{
		Data: []*stripe.InvoiceLineItem{{}},
	}}
	assert.Empty(t, invoiceSubscriptionID(oneTime))

	withSub := &stripe.Invoice{Lines: &stripe.InvoiceLineItemList{
		Data: []*stripe.InvoiceLineItem{
			{},
			{Subscription: &stripe.Subscription{ID: "sub_42"}},
		},
	}}
	assert.Equal(t, "sub_42", invoiceSubscriptionID(withSub))
}

func TestLogStatus(t *testing.T) {
	assert.Equal(t, models.WebhookEventLogStatusHandled, logStatus(metrics.OutcomeProcessed, nil))
	assert.Equal(t, models.WebhookEventLogStatusHandled, logStatus(metrics.OutcomeDuplicate, nil))
	assert.Equal(t, models.WebhookEventLogStatusSkipped, logStatus(metrics.OutcomeIgnored, nil))
	assert.Equal(t, models.WebhookEventLogStatusSkipped, logStatus(metrics.OutcomeSkipped, nil))
	assert.Equal(t, models.WebhookEventLogStatusSkipped, logStatus(metrics.OutcomeFailed, faults.Structuralf("bad payload")))
	assert.Equal(t, models.WebhookEventLogStatusHandleFailed, logStatus(metrics.OutcomeFailed, assert.AnError))
}
