/*
Package auth decides whether a compile request may proceed based on the API
key it carries.

The expected key is never held in a global. A KeyChecker is built with a
SecretSource (normally *secrets.Manager) and resolves the key on every check,
so a rotated secret is honored as soon as the secret cache drops it.

# Modes

	optional  no key passes, a matching key passes, any other key is rejected
	required  only a matching key passes
	disabled  the header is ignored

The optional mode is the default because existing front-ends call the proxy
without a key. It leaves the endpoint open to any caller that omits the
header; deployments exposed to the internet should use required.

# Basic Usage

	checker, err := auth.NewKeyChecker(auth.Config{
		Mode:       auth.ModeRequired,
		SecretName: "latex-api-key",
	}, manager)
	if err != nil {
		log.Fatal(err)
	}

	if err := checker.Check(ctx, r.Header.Get("x-api-key")); err != nil {
		// 401
	}

# Security Considerations

- Keys are compared in constant time
- Key values are never logged
- If the expected key cannot be resolved every presented key is rejected
*/
package auth
