package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenStore issues and validates short-lived reconnect tokens so a
// dropped client can reclaim its seat without re-authenticating.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
	ttl    time.Duration
}

type tokenEntry struct {
	playerID  string
	expiresAt time.Time
}

// NewTokenStore creates a store with the given token lifetime.
func NewTokenStore(ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenStore{
		tokens: make(map[string]tokenEntry),
		ttl:    ttl,
	}
}

// Issue creates a reconnect token for a player.
func (s *TokenStore) Issue(playerID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = tokenEntry{
		playerID:  playerID,
		expiresAt: time.Now().Add(s.ttl),
	}
	return token, nil
}

// Redeem validates a token and consumes it, returning the player it
// was issued for.
func (s *TokenStore) Redeem(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return "", false
	}
	delete(s.tokens, token)
	if time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.playerID, true
}

// Sweep drops expired tokens. Called periodically by the server.
func (s *TokenStore) Sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
		}
	}
}

// HashAccessKey hashes a server access key for storage in config.
func HashAccessKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAccessKey checks a presented key against the configured hash.
// An empty hash means the server runs open, accepting any key.
func VerifyAccessKey(hash, key string) bool {
	if hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
