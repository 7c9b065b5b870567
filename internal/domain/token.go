package domain

// TokenPair is what login and refresh return: a short-lived access token and
// the rotated refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // always "bearer"
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
}
