// Package backend provides typed access to the AutoGmail backend API.
//
// Every call goes through an apiclient.Client, so the stored bearer token is
// attached automatically and failures surface as *apiclient.Error. The client
// covers the mailbox (inbox, single email, sent mail), reply drafting, saving a
// draft to Gmail and the knowledge base (document upload, sent mail sync).
//
// Example usage:
//
//	api, err := apiclient.New(apiclient.Config{BaseURL: base, Store: store})
//	if err != nil {
//	    return err
//	}
//	client := backend.NewClient(api)
//
//	emails, err := client.ListInbox(ctx, 10)
package backend
