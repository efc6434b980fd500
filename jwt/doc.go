// Package jwt issues and verifies the bearer tokens that guard the metrics
// scrape endpoint. Tokens are HS256 or Ed25519 signed, carry a space-separated
// scope claim and are checked for issuer, audience, expiry and key ID.
package jwt
