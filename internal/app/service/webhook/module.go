package webhook

import "go.uber.org/fx"

// Module exposes the event verifier and router via Fx.
var Module = fx.Options(
	fx.Provide(NewVerifier),
	fx.Provide(NewRouter),
)
