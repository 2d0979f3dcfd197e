package checkout

import "go.uber.org/fx"

// Module exposes the checkout fan-out processor via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
