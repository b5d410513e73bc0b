/*
Package authsdk is a Go client for the DiDe authentication service and holds
the wire types and error bodies the service itself writes.

# SDKClient vs Session

SDKClient covers unauthenticated operations (health, login). A Session holds
an access token and the admin operations it unlocks:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "alice", "password", "")
	if errors.Is(err, authsdk.ErrTOTPRequired) {
		session, err = client.Login(ctx, "alice", "password", otpCode)
	}

	// Assign a TOTP secret to a supervisor (requires admin:write)
	err = session.SetTOTPSecret(ctx, accountID, "JBSWY3DPEHPK3PXP")
	if errors.Is(err, authsdk.ErrDuplicateSecret) {
		// another supervisor already holds it
	}

# Error Handling

Every non-2xx response is returned as an *APIError. The predefined errors in
errors.go match with errors.Is on their code alone, so callers can branch on
the code without caring about the description text.

# Tokens

Access tokens are not refreshed. A Session whose token has expired returns
ErrSessionExpired before making a request; log in again to continue.
*/
package authsdk
