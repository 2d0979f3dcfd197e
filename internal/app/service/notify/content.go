package notify

import (
	"fmt"
	"strings"

	"github.com/lumifin/reconciler/pkg/types"
)

// SummaryItem is one purchased unit group in a checkout summary.
type SummaryItem struct {
	ProductName string
	Type        types.PaymentType
	Quantity    int64
	Amount      int64
	Currency    string
}

// CheckoutSummary carries everything needed to render both messages for
// one completed checkout.
type CheckoutSummary struct {
	UserID   string
	Email    string
	Items    []SummaryItem
	Total    int64
	Currency string
}

// HasSubscription reports whether any purchased item is a subscription,
// which selects the dedicated welcome template.
func (s CheckoutSummary) HasSubscription() bool {
	for _, it := range s.Items {
		if it.Type == types.PaymentTypeAbonnement {
			return true
		}
	}
	return false
}

// FormatAmount renders minor units as a human amount, e.g. "50.00 EUR".
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}

func itemLines(items []SummaryItem) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "<li>%s x%d — %s</li>", it.ProductName, it.Quantity, FormatAmount(it.Amount, it.Currency))
	}
	return b.String()
}

// operatorSummary is the back-office heads-up for one completed checkout.
func operatorSummary(s CheckoutSummary) (subject, body string) {
	subject = fmt.Sprintf("Nouvelle commande — %s", FormatAmount(s.Total, s.Currency))
	body = fmt.Sprintf(
		"<p>Commande validée pour l'utilisateur %s (%s).</p><ul>%s</ul><p>Total : %s</p>",
		s.UserID, s.Email, itemLines(s.Items), FormatAmount(s.Total, s.Currency),
	)
	return subject, body
}

// purchaseConfirmation is the default purchaser-facing message.
func purchaseConfirmation(s CheckoutSummary) (subject, body string) {
	subject = "Confirmation de votre commande"
	body = fmt.Sprintf(
		"<p>Merci pour votre achat !</p><ul>%s</ul><p>Total réglé : %s</p>",
		itemLines(s.Items), FormatAmount(s.Total, s.Currency),
	)
	return subject, body
}

// subscriptionWelcome replaces the plain confirmation when the checkout
// contains a subscription.
func subscriptionWelcome(s CheckoutSummary) (subject, body string) {
	subject = "Bienvenue dans votre abonnement"
	body = fmt.Sprintf(
		"<p>Votre abonnement est actif. Bienvenue !</p><ul>%s</ul><p>Total réglé : %s</p>",
		itemLines(s.Items), FormatAmount(s.Total, s.Currency),
	)
	return subject, body
}
