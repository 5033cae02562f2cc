package models

// User is the profile returned by the token endpoint and cached locally
// next to the credentials.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the login response: a short-lived access token, the refresh
// token that exchanges for new access tokens, and the user profile.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}
