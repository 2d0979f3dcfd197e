package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/lumifin/reconciler/internal/app/api/server"
	"github.com/lumifin/reconciler/internal/app/service/analysis"
	"github.com/lumifin/reconciler/internal/app/service/catalog"
	"github.com/lumifin/reconciler/internal/app/service/checkout"
	"github.com/lumifin/reconciler/internal/app/service/eventlog"
	"github.com/lumifin/reconciler/internal/app/service/notify"
	"github.com/lumifin/reconciler/internal/app/service/subscription"
	"github.com/lumifin/reconciler/internal/app/service/webhook"
	"github.com/lumifin/reconciler/internal/platform/db"
	"github.com/lumifin/reconciler/internal/platform/mailer"
	"github.com/lumifin/reconciler/internal/platform/stripeapi"
	"github.com/lumifin/reconciler/pkg/config"
	"github.com/lumifin/reconciler/pkg/logger"
	"github.com/lumifin/reconciler/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	metrics.Module,
	db.Module,
	stripeapi.Module,
	mailer.Module,
	server.Module,
	catalog.Module,
	eventlog.Module,
	notify.Module,
	subscription.Module,
	checkout.Module,
	analysis.Module,
	webhook.Module,
)
