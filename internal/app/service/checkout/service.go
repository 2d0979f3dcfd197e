package checkout

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumifin/reconciler/internal/app/service/catalog"
	"github.com/lumifin/reconciler/internal/app/service/notify"
	"github.com/lumifin/reconciler/internal/app/service/subscription"
	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/internal/platform/stripeapi"
	cfgpkg "github.com/lumifin/reconciler/pkg/config"
	"github.com/lumifin/reconciler/pkg/faults"
	"github.com/lumifin/reconciler/pkg/logctx"
	"github.com/lumifin/reconciler/pkg/metrics"
	"github.com/lumifin/reconciler/pkg/tool"
	"github.com/lumifin/reconciler/pkg/types"
)

// Service is the checkout fan-out processor: it expands one completed
// checkout into payments, orders, entitlements and analysis tasks, exactly
// once per logical purchase unit.
type Service struct {
	db         *gorm.DB
	cfg        *cfgpkg.Config
	log        *zap.SugaredLogger
	processor  stripeapi.Client
	catalog    *catalog.Service
	subSvc     *subscription.Service
	notifier   *notify.Service
	metrics    *metrics.Metrics
	classifier *Classifier
}

func NewService(
	db *gorm.DB,
	cfg *cfgpkg.Config,
	log *zap.SugaredLogger,
	processor stripeapi.Client,
	cat *catalog.Service,
	subSvc *subscription.Service,
	notifier *notify.Service,
	m *metrics.Metrics,
) (*Service, error) {
	classifier, err := NewClassifier(cfg.Reconcile.AnalysisProductID, cfg.Reconcile.BundlePattern)
	if err != nil {
		return nil, err
	}
	return &Service{
		db: db, cfg: cfg, log: log, processor: processor, catalog: cat,
		subSvc: subSvc, notifier: notifier, metrics: m, classifier: classifier,
	}, nil
}

// Result summarizes one fan-out pass. Reused counts units a previous
// delivery already applied.
type Result struct {
	PaymentsCreated     int
	PaymentsReused      int
	OrdersCreated       int
	TasksCreated        int
	EntitlementsCreated int
}

// Process reconciles one completed checkout session.
func (s *Service) Process(ctx context.Context, sess *stripe.CheckoutSession) (*Result, error) {
	log := logctx.FromCtx(ctx, s.log)

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Infow("checkout not paid, nothing to reconcile", "checkout_id", sess.ID, "payment_status", sess.PaymentStatus)
		return &Result{}, nil
	}

	userID := sess.Metadata["user_id"]
	if userID == "" {
		return nil, faults.Structuralf("checkout %s has no user_id metadata", sess.ID)
	}
	entries, err := ParseCartManifest(sess.Metadata["cart"])
	if err != nil {
		return nil, fmt.Errorf("checkout %s: %w", sess.ID, err)
	}

	// Subscription-mode checkouts sync the subscription before fan-out so
	// the abonnement payment row lands on an up-to-date record.
	if sess.Mode == stripe.CheckoutSessionModeSubscription && sess.Subscription != nil {
		if err := s.subSvc.Sync(ctx, &subscription.SyncRequest{
			SubscriptionID: sess.Subscription.ID,
			UserID:         userID,
			Reason:         types.SubscriptionChangeReasonCheckout,
		}); err != nil {
			return nil, fmt.Errorf("subscription sync for checkout %s: %w", sess.ID, err)
		}
	}

	lines, err := s.resolveLineTotals(ctx, sess.ID, entries)
	if err != nil {
		return nil, err
	}

	catalogIDs := lo.FilterMap(entries, func(e CartEntry, _ int) (string, bool) {
		return e.ProductID, !s.classifier.IsPredefinedBundle(e.ProductID)
	})
	snapshot, err := s.catalog.Snapshot(ctx, lo.Uniq(catalogIDs))
	if err != nil {
		return nil, err
	}

	intents, err := s.classifier.BuildUnitIntents(entries, PricingInput{
		CheckoutID: sess.ID,
		Lines:      lines,
		Catalog:    snapshot,
		Total:      sess.AmountTotal,
		Currency:   string(sess.Currency),
	})
	if err != nil {
		return nil, err
	}

	result, err := s.persist(ctx, sess.ID, userID, types.PaymentProviderStripe, paymentMethod(sess), intents)
	if err != nil {
		return nil, err
	}

	s.metrics.FanOutRecords.WithLabelValues("payment").Add(float64(result.PaymentsCreated))
	s.metrics.FanOutRecords.WithLabelValues("order").Add(float64(result.OrdersCreated))
	s.metrics.FanOutRecords.WithLabelValues("analysis_task").Add(float64(result.TasksCreated))
	s.metrics.FanOutRecords.WithLabelValues("entitlement").Add(float64(result.EntitlementsCreated))

	log.Infow("checkout fan-out complete",
		"checkout_id", sess.ID, "user_id", userID,
		"payments_created", result.PaymentsCreated, "payments_reused", result.PaymentsReused,
		"orders", result.OrdersCreated, "tasks", result.TasksCreated, "entitlements", result.EntitlementsCreated)

	// Fire-and-forget: notification failures never fail reconciliation.
	if result.PaymentsCreated > 0 {
		summary := buildSummary(userID, purchaserEmail(sess), sess.AmountTotal, string(sess.Currency), intents)
		go s.notifier.SendCheckoutNotifications(context.WithoutCancel(ctx), summary)
	}

	return result, nil
}

// GrantManual creates an operator-granted purchase outside the processor:
// same fan-out, no order projection, no notification.
func (s *Service) GrantManual(ctx context.Context, userID, productID string, quantity int64, operatorID string) (*Result, error) {
	if userID == "" || productID == "" {
		return nil, fmt.Errorf("invalid params: userID and productID required")
	}
	if quantity < 1 {
		quantity = 1
	}

	entries := []CartEntry{{ProductID: productID, Quantity: quantity}}
	var snapshot map[string]*models.Product
	var err error
	if !s.classifier.IsPredefinedBundle(productID) {
		if snapshot, err = s.catalog.Snapshot(ctx, []string{productID}); err != nil {
			return nil, err
		}
	}

	grantID := "manual_" + tool.GenerateUUIDV7()
	intents, err := s.classifier.BuildUnitIntents(entries, PricingInput{
		CheckoutID: grantID,
		Catalog:    snapshot,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.persist(ctx, grantID, userID, types.PaymentProviderInner, "manual", intents)
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("manual grant applied",
		"user_id", userID, "product_id", productID, "operator_id", operatorID,
		"payments_created", result.PaymentsCreated)
	return result, nil
}

// resolveLineTotals fetches the processor's resolved line items and maps
// them back to cart product ids.
func (s *Service) resolveLineTotals(ctx context.Context, sessionID string, entries []CartEntry) (map[string]LineTotal, error) {
	items, err := s.processor.ListCheckoutLineItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("line items for checkout %s: %w", sessionID, err)
	}

	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ProductID] = true
	}

	lines := make(map[string]LineTotal, len(items))
	for _, li := range items {
		id := ""
		if li.Price != nil && li.Price.Product != nil && known[li.Price.Product.ID] {
			id = li.Price.Product.ID
		} else if known[li.Description] {
			// Sessions built from ad-hoc price data carry the cart id in
			// the line description.
			id = li.Description
		}
		if id == "" {
			continue
		}
		lines[id] = LineTotal{Amount: li.AmountTotal, Quantity: li.Quantity, Currency: string(li.Currency)}
	}
	return lines, nil
}

func paymentMethod(sess *stripe.CheckoutSession) string {
	if len(sess.PaymentMethodTypes) > 0 {
		return sess.PaymentMethodTypes[0]
	}
	return "card"
}

func purchaserEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.Metadata["email"]
}

func buildSummary(userID, email string, total int64, currency string, intents []UnitIntent) notify.CheckoutSummary {
	grouped := map[string]*notify.SummaryItem{}
	order := []string{}
	for _, in := range intents {
		item, ok := grouped[in.ProductID]
		if !ok {
			item = &notify.SummaryItem{ProductName: in.ProductName, Type: in.Type, Currency: in.Currency}
			grouped[in.ProductID] = item
			order = append(order, in.ProductID)
		}
		item.Quantity++
		item.Amount += in.Amount
	}
	summary := notify.CheckoutSummary{UserID: userID, Email: email, Total: total, Currency: currency}
	for _, id := range order {
		summary.Items = append(summary.Items, *grouped[id])
	}
	return summary
}

// methodLabel resolves the human label shown on order projections.
func methodLabel(method string) string {
	switch method {
	case "card":
		return "Carte bancaire"
	case "sepa_debit":
		return "Prélèvement SEPA"
	case "manual":
		return "Attribution manuelle"
	default:
		return method
	}
}
