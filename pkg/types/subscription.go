package types

// SubscriptionStatus mirrors the processor's subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonSync            SubscriptionChangeReason = "sync"
	SubscriptionChangeReasonInvoicePaid     SubscriptionChangeReason = "invoicePaid"
	SubscriptionChangeReasonInvoiceFailed   SubscriptionChangeReason = "invoiceFailed"
	SubscriptionChangeReasonDeleted         SubscriptionChangeReason = "deleted"
	SubscriptionChangeReasonCheckout        SubscriptionChangeReason = "checkout"
	SubscriptionChangeReasonManualTerminate SubscriptionChangeReason = "manualTerminate"
)
