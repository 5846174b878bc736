package config

import "go.uber.org/fx"

// Module wires application configuration and the injected admin credential
// pair for the session issuer.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		func(cfg Config) AdminCredentials { return cfg.Admin },
		func(cfg Config) TurnstileConfig { return cfg.Turnstile },
		func(cfg Config) GoogleOAuthConfig { return cfg.Google },
	),
	fx.Invoke(func(cfg Config) error { return cfg.Validate() }),
)
