// Package endpoint resolves the base URL of the AutoGmail backend API.
//
// Resolution is an ordered fallback where the first matching rule wins:
//
//  1. An explicit override (for example AUTOGMAIL_API_URL). Exactly one trailing
//     slash is stripped and the /api/v1 suffix is appended unless already present.
//  2. The current origin of the running site, for deployments that serve the
//     backend under the same host.
//  3. The hosted default backend.
//
// Resolve is a pure function. Resolver wraps it so that the value is computed once
// per process and never changes afterwards:
//
//	r := endpoint.NewResolver(endpoint.Config{Override: os.Getenv("AUTOGMAIL_API_URL")})
//	client, err := apiclient.New(apiclient.Config{BaseURL: r.BaseURL()})
package endpoint
