package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestIssueResolveRoundtrip(t *testing.T) {
	user := uuid.New()
	tenant := uuid.New()
	issuer := Issuer{Secret: testSecret, TTL: time.Hour}
	token, err := issuer.Issue(TokenInput{UserID: user, TenantID: &tenant, Role: "Administrador"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	gotUser, gotTenant := TokenResolver{Secret: testSecret}.Resolve(token)
	if gotUser == nil || *gotUser != user {
		t.Fatalf("user = %v, want %v", gotUser, user)
	}
	if gotTenant == nil || *gotTenant != tenant {
		t.Fatalf("tenant = %v, want %v", gotTenant, tenant)
	}
}

func TestResolveWithoutTenant(t *testing.T) {
	user := uuid.New()
	token, err := Issuer{Secret: testSecret}.Issue(TokenInput{UserID: user})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	gotUser, gotTenant := TokenResolver{Secret: testSecret}.Resolve(token)
	if gotUser == nil || *gotUser != user {
		t.Fatalf("user = %v, want %v", gotUser, user)
	}
	if gotTenant != nil {
		t.Fatalf("tenant = %v, want nil", gotTenant)
	}
}

// Resolution failures are lenient: no identity, no error.
func TestResolveLenientFailures(t *testing.T) {
	cases := map[string]TokenResolver{
		"empty token":  {Secret: testSecret},
		"empty secret": {Secret: ""},
	}
	for name, r := range cases {
		token := ""
		if name == "empty secret" {
			token = "whatever"
		}
		if u, tn := r.Resolve(token); u != nil || tn != nil {
			t.Fatalf("%s: expected (nil, nil), got (%v, %v)", name, u, tn)
		}
	}

	if u, tn := (TokenResolver{Secret: testSecret}).Resolve("not-a-jwt"); u != nil || tn != nil {
		t.Fatalf("garbage token: expected (nil, nil), got (%v, %v)", u, tn)
	}

	user := uuid.New()
	token, err := Issuer{Secret: "other-secret"}.Issue(TokenInput{UserID: user})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if u, tn := (TokenResolver{Secret: testSecret}).Resolve(token); u != nil || tn != nil {
		t.Fatalf("wrong secret: expected (nil, nil), got (%v, %v)", u, tn)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	user := uuid.New()
	issuer := Issuer{
		Secret: testSecret,
		TTL:    time.Hour,
		Now:    func() time.Time { return time.Now().Add(-2 * time.Hour) },
	}
	token, err := issuer.Issue(TokenInput{UserID: user})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if u, tn := (TokenResolver{Secret: testSecret}).Resolve(token); u != nil || tn != nil {
		t.Fatalf("expired token: expected (nil, nil), got (%v, %v)", u, tn)
	}
}

func TestBcryptPasswords(t *testing.T) {
	p := BcryptPasswords{Cost: 4}
	hash, err := p.Hash("secreto123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !p.Verify(hash, "secreto123") {
		t.Fatal("expected match")
	}
	if p.Verify(hash, "otra-clave") {
		t.Fatal("expected mismatch")
	}
}
