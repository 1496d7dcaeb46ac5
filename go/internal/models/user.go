package models

// User represents the authenticated actor.
type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	IsPresident bool   `json:"is_president"`
	IsAdmin     bool   `json:"is_admin"`
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
