package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumifin/reconciler/internal/app/service/webhook"
	"github.com/lumifin/reconciler/pkg/faults"
	"github.com/lumifin/reconciler/pkg/logctx"
	"github.com/lumifin/reconciler/pkg/metrics"
	"github.com/lumifin/reconciler/pkg/response"
)

// Provider payloads are small; anything above this is not a webhook.
const maxWebhookBody = 1 << 20

// ApiStripeWebhook ingests provider events. The status code is the retry
// contract: 2xx acknowledges, 400 rejects an unauthenticated payload, 5xx
// asks the provider to redeliver.
func ApiStripeWebhook(log *zap.SugaredLogger, verifier webhook.Verifier, router *webhook.Router, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			m.WebhookEvents.WithLabelValues("unknown", metrics.OutcomeRejected).Inc()
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		event, err := verifier.Verify(body, c.GetHeader("Stripe-Signature"))
		if err != nil {
			m.WebhookEvents.WithLabelValues("unknown", metrics.OutcomeRejected).Inc()
			logctx.FromGin(c, log).Warnw("webhook_signature_rejected", "error", err.Error())
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid signature"))
			return
		}

		kind := string(event.Type)
		outcome, err := router.Dispatch(c.Request.Context(), event)
		switch {
		case err == nil:
			m.WebhookEvents.WithLabelValues(kind, outcome).Inc()
			c.JSON(http.StatusOK, response.OKT[any](nil))
		case faults.IsAlreadyApplied(err):
			m.WebhookEvents.WithLabelValues(kind, metrics.OutcomeDuplicate).Inc()
			c.JSON(http.StatusOK, response.OKT[any](nil))
		case faults.IsStructural(err):
			// Acknowledge: redelivery cannot repair a malformed event.
			m.WebhookEvents.WithLabelValues(kind, metrics.OutcomeSkipped).Inc()
			logctx.FromGin(c, log).Warnw("webhook_event_skipped", "event_id", event.ID, "kind", kind, "error", err.Error())
			c.JSON(http.StatusOK, response.OKT[any](nil))
		default:
			m.WebhookEvents.WithLabelValues(kind, metrics.OutcomeFailed).Inc()
			logctx.FromGin(c, log).Errorw("webhook_event_failed", "event_id", event.ID, "kind", kind, "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, "processing failed"))
		}
	}
}

func RegisterWebhookRoutes(r gin.IRouter, log *zap.SugaredLogger, verifier webhook.Verifier, router *webhook.Router, m *metrics.Metrics) {
	r.POST("/stripe", ApiStripeWebhook(log, verifier, router, m))
}
