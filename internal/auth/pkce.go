package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/oauth2"
)

const (
	// SecretLength is the length of generated verifiers and states.
	SecretLength = 64

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// RandomString draws length characters uniformly from [A-Za-z0-9].
func RandomString(r io.Reader, length int) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(r, size)
		if err != nil {
			return "", fmt.Errorf("random string: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// Challenge derives the S256 code challenge:
// base64url(sha256(verifier)) without padding.
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
