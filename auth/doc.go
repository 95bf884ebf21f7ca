// Package auth signs and verifies the short-lived JWTs that
// authenticate outbound webhook deliveries.
//
// A delivery token proves to the receiving system that a notification
// originated from this engine and has not been tampered with. Tokens
// are HMAC-SHA256 signed with a shared secret and expire quickly, so a
// captured token is of little use.
//
//	cfg := auth.JWTConfig{
//	    Secret: []byte(webhookSecret), // at least 32 bytes
//	    Issuer: "ticketflow",
//	}
//
//	token, err := auth.GenerateToken(cfg, "notifier")
//
// Receivers verify with the same config:
//
//	claims, err := auth.ValidateToken(cfg, token)
//	// claims.Subject == "notifier"
package auth
