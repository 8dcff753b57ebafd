package encoder

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var base = big.NewInt(int64(len(alphabet)))

const (
	// CodeLength is the length of generated short codes (62^7 combinations)
	CodeLength = 7

	MinAliasLength = 3
	MaxAliasLength = 20
)

// Random draws n characters uniformly from the base62 alphabet
func Random(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid code length: %d", n)
	}

	code := make([]byte, n)
	for i := range code {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		code[i] = alphabet[idx.Int64()]
	}
	return string(code), nil
}

// IsAlphanumeric reports whether every byte of s is in the alphabet
func IsAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if indexOf(s[i]) < 0 {
			return false
		}
	}
	return true
}

// ValidAlias reports whether s can be used as a custom alias
func ValidAlias(s string) bool {
	return len(s) >= MinAliasLength && len(s) <= MaxAliasLength && IsAlphanumeric(s)
}

func indexOf(char byte) int {
	switch {
	case char >= '0' && char <= '9':
		return int(char - '0')
	case char >= 'a' && char <= 'z':
		return int(char-'a') + 10
	case char >= 'A' && char <= 'Z':
		return int(char-'A') + 36
	}
	return -1
}
