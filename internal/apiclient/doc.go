// Package apiclient is the authenticated HTTP client for the AutoGmail backend.
//
// A Client is created once per process with the resolved base URL (see package
// endpoint) and a token store. Every request passes through the configured
// decorators right before dispatch; the default BearerToken decorator re-reads the
// store and sets "Authorization: Bearer <token>" when a token is present. Nothing
// is cached, so logging in or out takes effect on the next request.
//
// The client performs no retries and does not interpret status codes. Network
// failures, timeouts and non-2xx responses are all returned as *Error, which carries
// the status code (0 when no response arrived) and the response body:
//
//	client, err := apiclient.New(apiclient.Config{
//		BaseURL: endpoint.NewResolver(cfg).BaseURL(),
//		Store:   tokenstore.NewFile(),
//	})
//	var emails []backend.Email
//	err = client.GetJSON(ctx, "/gmail/inbox", &emails)
//	if apiclient.IsUnauthorized(err) {
//		// send the user to the login page
//	}
package apiclient
