package authsdk

import "time"

// Session holds the access token from one login. Tokens are not refreshed;
// once expired every call returns ErrSessionExpired without a request.
type Session struct {
	client      *SDKClient
	accessToken string
	expiresAt   time.Time
	role        string
	homePath    string
}

// expirySkew makes a session expire slightly before its token does.
const expirySkew = 30 * time.Second

func newSession(client *SDKClient, login *LoginResponse) *Session {
	return &Session{
		client:      client,
		accessToken: login.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(login.ExpiresIn)*time.Second - expirySkew),
		role:        login.Role,
		homePath:    login.HomePath,
	}
}

func (s *Session) AccessToken() string { return s.accessToken }

// ExpiresAt is when the session stops making requests.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Role is the role reported at login.
func (s *Session) Role() string { return s.role }

// HomePath is where the web client should land after login.
func (s *Session) HomePath() string { return s.homePath }
