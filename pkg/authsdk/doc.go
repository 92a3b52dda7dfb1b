/*
Package authsdk provides a client SDK for the authcore session authentication
service.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (register, login, health) and
    creation of sessions
  - Session: authenticated operations with automatic token rotation

	client := authsdk.NewSDKClient("https://auth.example.com")

	id, err := client.Register(ctx, "alice", "alice@example.com", password)

	session, err := client.Login(ctx, "alice@example.com", password)

	me, err := session.GetUser(ctx)

# Token Rotation

Refresh tokens are single use. Every successful refresh hands back a new
refresh envelope and the old one stops working; presenting a consumed
envelope again revokes every refresh token of the user. A Session
serialises its refreshes so it never races itself.

# Errors

Failed calls return an *APIError carrying the HTTP status and the error
code from the response body:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeTokenExpired {
		// log in again
	}
*/
package authsdk
