/*
Package security groups API key authentication and secret resolution for
texrelay.

# Secret Management

Resolve the expected API key from mounted files first, then the environment:

	manager := secrets.NewManager([]secrets.SecretProvider{
		fileProvider,
		secrets.NewEnvProvider(""),
	}, cacheConfig)

	key, err := manager.GetSecret(ctx, "latex-api-key")

# API Key Authentication

	checker, err := auth.NewKeyChecker(auth.Config{
		Mode:       auth.ModeOptional,
		SecretName: "latex-api-key",
	}, manager)
*/
package security
