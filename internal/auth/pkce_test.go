package auth

import (
	"strings"
	"testing"
)

func TestGenerateCodeChallengeKnownVector(t *testing.T) {
	// RFC 7636 appendix B example.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if got := GenerateCodeChallenge(verifier); got != want {
		t.Errorf("GenerateCodeChallenge() = %q, want %q", got, want)
	}
}

func TestGenerateCodeChallengeIsDeterministic(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		t.Fatalf("generate verifier: %v", err)
	}
	if GenerateCodeChallenge(verifier) != GenerateCodeChallenge(verifier) {
		t.Error("same verifier produced different challenges")
	}
}

func TestChallengeIsBase64URLWithoutPadding(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		t.Fatalf("generate verifier: %v", err)
	}
	challenge := GenerateCodeChallenge(verifier)

	for _, s := range []string{verifier, challenge} {
		if strings.ContainsAny(s, "=+/") {
			t.Errorf("%q contains padding or non-url-safe characters", s)
		}
	}
	if len(challenge) != 43 { // 32 bytes of SHA-256, base64url, no padding
		t.Errorf("challenge length = %d, want 43", len(challenge))
	}
}

func TestVerifiersDoNotCollide(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		v, err := GenerateCodeVerifier()
		if err != nil {
			t.Fatalf("generate verifier: %v", err)
		}
		if seen[v] {
			t.Fatalf("verifier collision after %d draws: %q", i, v)
		}
		seen[v] = true
	}
}
