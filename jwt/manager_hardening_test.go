package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func signed(t *testing.T, method gjwt.SigningMethod, key interface{}, claims ScrapeClaims, kid string) string {
	t.Helper()
	tok := gjwt.NewWithClaims(method, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	out, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return out
}

func TestIssueAndVerifyHS256(t *testing.T) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("scrape-secret-scrape-secret-32b"), Issuer: "iammetricsd"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Issue("prometheus")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "prometheus" || !claims.HasScope(ScopeMetricsRead) {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRequiresScope(t *testing.T) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("scrape-secret-scrape-secret-32b")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.IssueScoped("grafana", "dashboards:read", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInsufficientScope) {
		t.Fatalf("expected ErrInsufficientScope, got %v", err)
	}

	multi, err := m.IssueScoped("grafana", "dashboards:read metrics:read", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(multi); err != nil {
		t.Fatalf("expected multi-scope token to pass: %v", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := ScrapeClaims{Scope: ScopeMetricsRead, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token := signed(t, gjwt.SigningMethodHS256, []byte("secret-secret-secret-secret"), claims, "")
	if _, err := m.Verify(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestVerifyRequiresExpiry(t *testing.T) {
	secret := []byte("scrape-secret-scrape-secret-32b")
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token := signed(t, gjwt.SigningMethodHS256, secret, ScrapeClaims{Scope: ScopeMetricsRead}, "")
	if _, err := m.Verify(token); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestVerifyIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "iammetricsd",
		Audience:      "metrics",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Issue("prometheus")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("expected valid token to verify: %v", err)
	}

	base := func(iss, aud string, exp, iat time.Duration) ScrapeClaims {
		return ScrapeClaims{Scope: ScopeMetricsRead, RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    iss,
			Audience:  gjwt.ClaimStrings{aud},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(exp)),
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(iat)),
		}}
	}

	if _, err := m.Verify(signed(t, gjwt.SigningMethodEdDSA, priv, base("other", "metrics", time.Minute, 0), "")); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
	if _, err := m.Verify(signed(t, gjwt.SigningMethodEdDSA, priv, base("iammetricsd", "other", time.Minute, 0), "")); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
	if _, err := m.Verify(signed(t, gjwt.SigningMethodEdDSA, priv, base("iammetricsd", "metrics", -15*time.Second, -time.Minute), "")); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	if _, err := m.Verify(signed(t, gjwt.SigningMethodEdDSA, priv, base("iammetricsd", "metrics", -2*time.Minute, -3*time.Minute), "")); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestVerifyUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := ScrapeClaims{Scope: ScopeMetricsRead, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	if _, err := m.Verify(signed(t, gjwt.SigningMethodEdDSA, priv1, claims, "k2")); !errors.Is(err, ErrUnknownKID) {
		t.Fatalf("expected unknown kid failure, got %v", err)
	}
	if _, err := m.Verify(signed(t, gjwt.SigningMethodEdDSA, priv1, claims, "")); !errors.Is(err, ErrMissingKID) {
		t.Fatalf("expected missing kid failure, got %v", err)
	}
	if _, err := m.Verify(signed(t, gjwt.SigningMethodEdDSA, priv1, claims, "k1")); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}
}

func TestVerifierOnlyManagerCannotIssue(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Issue("prometheus"); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{SigningMethod: MethodHS256},
		{SigningMethod: MethodEd25519},
		{SigningMethod: "rs256", PrivateKey: []byte("x")},
		{SigningMethod: MethodHS256, PrivateKey: []byte("x"), Leeway: time.Hour},
		{SigningMethod: MethodHS256, PrivateKey: []byte("x"), TokenTTL: -time.Second},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
