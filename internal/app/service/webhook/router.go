package webhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/lumifin/reconciler/internal/app/service/checkout"
	"github.com/lumifin/reconciler/internal/app/service/eventlog"
	"github.com/lumifin/reconciler/internal/app/service/subscription"
	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/faults"
	"github.com/lumifin/reconciler/pkg/logctx"
	"github.com/lumifin/reconciler/pkg/metrics"
	"github.com/lumifin/reconciler/pkg/types"
)

type action int

const (
	actionIgnore action = iota
	actionCheckout
	actionInvoicePaid
	actionInvoiceFailed
	actionSubscriptionSync
	actionSubscriptionDelete
)

// routeFor maps a provider event kind to its handling action. Unknown
// kinds are acknowledged without processing so the provider stops
// redelivering them.
func routeFor(kind stripe.EventType) action {
	switch kind {
	case "checkout.session.completed":
		return actionCheckout
	case "invoice.paid":
		return actionInvoicePaid
	case "invoice.payment_failed":
		return actionInvoiceFailed
	case "customer.subscription.updated":
		return actionSubscriptionSync
	case "customer.subscription.deleted":
		return actionSubscriptionDelete
	default:
		return actionIgnore
	}
}

// invoiceSubscriptionID extracts the subscription behind an invoice, empty
// for one-time invoices.
func invoiceSubscriptionID(inv *stripe.Invoice) string {
	if inv.Lines == nil {
		return ""
	}
	for _, line := range inv.Lines.Data {
		if line.Subscription != nil && line.Subscription.ID != "" {
			return line.Subscription.ID
		}
	}
	return ""
}

// Router dispatches verified provider events to the owning service and
// journals every event it sees.
type Router struct {
	log         *zap.SugaredLogger
	subSvc      *subscription.Service
	checkoutSvc *checkout.Service
	events      *eventlog.Service
}

func NewRouter(log *zap.SugaredLogger, subSvc *subscription.Service, checkoutSvc *checkout.Service, events *eventlog.Service) *Router {
	return &Router{log: log, subSvc: subSvc, checkoutSvc: checkoutSvc, events: events}
}

// Dispatch routes one verified event and returns the outcome label for
// telemetry. The error, when non-nil, decides the HTTP status: structural
// failures are acknowledged, everything else asks for redelivery.
func (r *Router) Dispatch(ctx context.Context, event stripe.Event) (string, error) {
	entry := &models.WebhookEventLog{
		EventID: event.ID,
		Kind:    string(event.Type),
		Data:    datatypes.JSON(event.Data.Raw),
		Status:  models.WebhookEventLogStatusReceived,
	}
	if tid, ok := ctx.Value("traceID").(string); ok {
		entry.TraceID = tid
	}

	outcome, err := r.handle(ctx, event)
	entry.Status = logStatus(outcome, err)
	r.events.Save(ctx, entry)

	return outcome, err
}

func logStatus(outcome string, err error) models.WebhookEventLogStatus {
	switch {
	case err != nil && faults.IsStructural(err):
		return models.WebhookEventLogStatusSkipped
	case err != nil:
		return models.WebhookEventLogStatusHandleFailed
	case outcome == metrics.OutcomeIgnored || outcome == metrics.OutcomeSkipped:
		return models.WebhookEventLogStatusSkipped
	default:
		return models.WebhookEventLogStatusHandled
	}
}

func (r *Router) handle(ctx context.Context, event stripe.Event) (string, error) {
	log := logctx.FromCtx(ctx, r.log)

	switch routeFor(event.Type) {
	case actionCheckout:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return metrics.OutcomeFailed, faults.Structuralf("unparseable checkout session in %s: %v", event.ID, err)
		}
		result, err := r.checkoutSvc.Process(ctx, &sess)
		if err != nil {
			return metrics.OutcomeFailed, err
		}
		if result.PaymentsCreated == 0 && result.PaymentsReused > 0 {
			return metrics.OutcomeDuplicate, nil
		}
		return metrics.OutcomeProcessed, nil

	case actionInvoicePaid, actionInvoiceFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return metrics.OutcomeFailed, faults.Structuralf("unparseable invoice in %s: %v", event.ID, err)
		}
		subID := invoiceSubscriptionID(&inv)
		if subID == "" {
			log.Infow("invoice without subscription, nothing to sync", "event_id", event.ID, "invoice_id", inv.ID)
			return metrics.OutcomeSkipped, nil
		}
		reason := types.SubscriptionChangeReasonInvoicePaid
		if routeFor(event.Type) == actionInvoiceFailed {
			reason = types.SubscriptionChangeReasonInvoiceFailed
		}
		if err := r.subSvc.Sync(ctx, &subscription.SyncRequest{SubscriptionID: subID, Reason: reason}); err != nil {
			return metrics.OutcomeFailed, err
		}
		return metrics.OutcomeProcessed, nil

	case actionSubscriptionSync:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return metrics.OutcomeFailed, faults.Structuralf("unparseable subscription in %s: %v", event.ID, err)
		}
		if err := r.subSvc.Sync(ctx, &subscription.SyncRequest{
			SubscriptionID: sub.ID,
			Reason:         types.SubscriptionChangeReasonSync,
		}); err != nil {
			return metrics.OutcomeFailed, err
		}
		return metrics.OutcomeProcessed, nil

	case actionSubscriptionDelete:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return metrics.OutcomeFailed, faults.Structuralf("unparseable subscription in %s: %v", event.ID, err)
		}
		if err := r.subSvc.Sync(ctx, &subscription.SyncRequest{
			SubscriptionID: sub.ID,
			StatusOverride: types.SubscriptionStatusCanceled,
			Reason:         types.SubscriptionChangeReasonDeleted,
		}); err != nil {
			return metrics.OutcomeFailed, err
		}
		return metrics.OutcomeProcessed, nil

	default:
		log.Debugw("ignoring unhandled event kind", "event_id", event.ID, "kind", event.Type)
		return metrics.OutcomeIgnored, nil
	}
}
