package auth

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// keyring maps issuer -> kid -> key.
type keyring[K any] map[string]map[string]K

func (r keyring[K]) put(issuer, kid string, key K) {
	if _, ok := r[issuer]; !ok {
		r[issuer] = make(map[string]K)
	}
	r[issuer][kid] = key
}

func (r keyring[K]) get(issuer, kid string) (K, bool) {
	key, ok := r[issuer][kid]
	return key, ok
}

// KeyStore holds verification keys by issuer and kid. It is populated at
// startup and read-only afterwards.
type KeyStore struct {
	hs256 keyring[[]byte]
	rs256 keyring[*rsa.PublicKey]
}

func NewKeyStore() *KeyStore {
	return &KeyStore{
		hs256: keyring[[]byte]{},
		rs256: keyring[*rsa.PublicKey]{},
	}
}

func (ks *KeyStore) LoadHS256Key(issuer, kid string, secret []byte) {
	ks.hs256.put(issuer, kid, secret)
}

// LoadRS256Key parses a PEM public key. Escaped "\n" sequences, as they
// arrive from env vars, are accepted.
func (ks *KeyStore) LoadRS256Key(issuer, kid string, publicKeyPEM string) error {
	normalized := strings.TrimSpace(strings.ReplaceAll(publicKeyPEM, `\n`, "\n"))

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(normalized))
	if err != nil {
		return fmt.Errorf("failed to parse RSA public key: %w", err)
	}
	ks.rs256.put(issuer, kid, publicKey)
	return nil
}

func (ks *KeyStore) GetHS256Key(issuer, kid string) ([]byte, bool) {
	return ks.hs256.get(issuer, kid)
}

func (ks *KeyStore) GetRS256Key(issuer, kid string) (*rsa.PublicKey, bool) {
	return ks.rs256.get(issuer, kid)
}
