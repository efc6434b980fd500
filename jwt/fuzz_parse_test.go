package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzVerify feeds arbitrary token strings to the verifier.
// Invalid inputs must be rejected with errors, never panics.
func FuzzVerify(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	mgr, err := NewManager(Config{
		TokenTTL:      5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
		RequireIAT:    true,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		f.Fatal(err)
	}

	validToken, err := mgr.Issue("prometheus")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(validToken)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9.eyJzY29wZSI6Im1ldHJpY3M6cmVhZCJ9.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJzY29wZSI6Im1ldHJpY3M6cmVhZCJ9.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.Verify(input)
		if err != nil {
			return
		}
		if claims == nil {
			t.Fatal("Verify returned nil claims without error")
		}
	})
}
