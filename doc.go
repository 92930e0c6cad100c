// Package icontact provides a Go client for the iContact email-marketing
// API.
//
// Two API generations are supported. [Client] talks to the v1 XML API:
// requests are signed with the application's shared secret, and the client
// logs in on demand and again whenever the service reports a stale session.
// [V2Client] talks to the v2.2 JSON API, which takes static header
// credentials on every call.
//
// Both clients retry rate-limited calls with a jittered backoff that grows
// with the retry counter. Once the counter passes its ceiling (see
// [WithRetries]) every call fails with [ErrRetryExhausted] until
// ResetRetries is called.
//
// Basic usage:
//
//	client, err := icontact.New(apiKey, sharedSecret, username,
//	    icontact.HashPassword(appPassword))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	lists, err := client.Lists(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, ref := range lists {
//	    list, err := client.List(ctx, ref.ID)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(list.Name)
//	}
//
// A client serialises its calls. Processes that need parallel calls create
// several clients and share logins through a CredentialStore from the
// credstore package.
package icontact
