package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumifin/reconciler/pkg/types"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "50.00 EUR", FormatAmount(5000, "eur"))
	assert.Equal(t, "0.05 EUR", FormatAmount(5, "EUR"))
	assert.Equal(t, "150.99 USD", FormatAmount(15099, "usd"))
	assert.Equal(t, "0.00 EUR", FormatAmount(0, "eur"))
}

func TestHasSubscription(t *testing.T) {
	plain := CheckoutSummary{Items: []SummaryItem{
		{ProductName: "Capsule 2", Type: types.PaymentTypeCapsule},
		{ProductName: "Ebook", Type: types.PaymentTypeEbook},
	}}
	assert.False(t, plain.HasSubscription())

	withSub := CheckoutSummary{Items: []SummaryItem{
		{ProductName: "Abonnement mensuel", Type: types.PaymentTypeAbonnement},
	}}
	assert.True(t, withSub.HasSubscription())
}

func TestTemplateSelection(t *testing.T) {
	summary := CheckoutSummary{
		UserID:   "u-1",
		Email:    "client@example.com",
		Total:    5000,
		Currency: "eur",
		Items: []SummaryItem{
			{ProductName: "Capsule 2", Type: types.PaymentTypeCapsule, Quantity: 1, Amount: 5000, Currency: "eur"},
		},
	}

	subject, body := purchaseConfirmation(summary)
	assert.Equal(t, "Confirmation de votre commande", subject)
	assert.True(t, strings.Contains(body, "Capsule 2"))
	assert.True(t, strings.Contains(body, "50.00 EUR"))

	subject, _ = subscriptionWelcome(summary)
	assert.Equal(t, "Bienvenue dans votre abonnement", subject)

	subject, body = operatorSummary(summary)
	assert.True(t, strings.Contains(subject, "50.00 EUR"))
	assert.True(t, strings.Contains(body, "u-1"))
	assert.True(t, strings.Contains(body, "client@example.com"))
}
