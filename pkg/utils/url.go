package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

// HashURL returns the hex SHA-256 of rawURL, usable as a fixed-size Redis key part.
func HashURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// ToAbsoluteURL resolves ref against base. Absolute refs are returned unchanged.
func ToAbsoluteURL(base *url.URL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty URL reference")
	}
	relURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}
