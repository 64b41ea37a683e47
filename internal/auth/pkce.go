package auth

import (
	"fmt"
	"io"
)

const (
	verifierLength = 64
	stateLength    = 32

	// unambiguous alphanumeric alphabet for verifiers and state values
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// randomString draws n characters from alphabet using r.
//
// Bytes at or above the largest multiple of len(alphabet) are rejected so every
// character is equally likely.
func randomString(r io.Reader, n int) (string, error) {
	limit := byte(256 - 256%len(alphabet))
	out := make([]byte, 0, n)
	buf := make([]byte, n)

	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
