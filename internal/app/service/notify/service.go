package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumifin/reconciler/internal/platform/mailer"
	cfgpkg "github.com/lumifin/reconciler/pkg/config"
	"github.com/lumifin/reconciler/pkg/logctx"
	"github.com/lumifin/reconciler/pkg/metrics"
)

// Service assembles notification content and hands it to the dispatcher.
// Dispatch failures are telemetry, never reconciliation failures.
type Service struct {
	dispatcher mailer.Dispatcher
	cfg        *cfgpkg.Config
	log        *zap.SugaredLogger
	metrics    *metrics.Metrics
}

func NewService(dispatcher mailer.Dispatcher, cfg *cfgpkg.Config, log *zap.SugaredLogger, m *metrics.Metrics) *Service {
	return &Service{dispatcher: dispatcher, cfg: cfg, log: log, metrics: m}
}

// SendCheckoutNotifications sends the operator summary and the purchaser
// confirmation (or subscription welcome) for one completed checkout.
// All failures are logged and swallowed.
func (s *Service) SendCheckoutNotifications(ctx context.Context, summary CheckoutSummary) {
	log := logctx.FromCtx(ctx, s.log)

	if s.cfg.Notify.OperatorEmail != "" {
		subject, body := operatorSummary(summary)
		if err := s.dispatcher.Send(ctx, s.cfg.Notify.OperatorEmail, subject, body); err != nil {
			s.metrics.NotifyFailures.Inc()
			log.Errorw("operator notification failed", "error", err.Error())
		}
	}

	if summary.Email == "" {
		log.Warnw("no purchaser email on checkout, skipping confirmation", "user_id", summary.UserID)
		return
	}

	subject, body := purchaseConfirmation(summary)
	if summary.HasSubscription() {
		subject, body = subscriptionWelcome(summary)
	}
	if err := s.dispatcher.Send(ctx, summary.Email, subject, body); err != nil {
		s.metrics.NotifyFailures.Inc()
		log.Errorw("purchaser notification failed", "user_id", summary.UserID, "error", err.Error())
	}
}

var Module = fx.Options(
	fx.Provide(NewService),
)
