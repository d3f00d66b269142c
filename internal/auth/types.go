package auth

// Claims carried by a daemon session token. Sub is the device label; the
// daemon is single-user so there is no role model.
type Claims struct {
	Sub       string `json:"sub"`
	TokenID   string `json:"jti"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
