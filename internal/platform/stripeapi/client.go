// Package stripeapi wraps the read-only calls the engine makes back to the
// payment processor. All calls carry a bounded timeout; a timeout surfaces
// as a plain error, which the router treats as retryable.
package stripeapi

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/fx"

	cfgpkg "github.com/lumifin/reconciler/pkg/config"
)

// Client is the processor read surface the services depend on.
type Client interface {
	// GetSubscription fetches the canonical subscription snapshot.
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	// ListCheckoutLineItems fetches the resolved line items of a session.
	ListCheckoutLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error)
}

type apiClient struct {
	sc      *client.API
	timeout time.Duration
}

func New(cfg *cfgpkg.Config) Client {
	timeout := time.Duration(cfg.Stripe.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &apiClient{sc: client.New(cfg.Stripe.APIKey, nil), timeout: timeout}
}

func (c *apiClient) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("empty subscription id")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.sc.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", subscriptionID, err)
	}
	return sub, nil
}

func (c *apiClient) ListCheckoutLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty checkout session id")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	params.Context = ctx
	iter := c.sc.CheckoutSessions.ListLineItems(params)

	var items []*stripe.LineItem
	for iter.Next() {
		items = append(items, iter.LineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list line items for %s: %w", sessionID, err)
	}
	return items, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
