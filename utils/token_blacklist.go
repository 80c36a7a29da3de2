package utils

import (
	"sync"
	"time"
)

// In-process revoked-token set. Entries expire together with the token itself,
// so the map stays bounded by the token lifetime.
var (
	blacklist   = map[string]time.Time{}
	blacklistMu sync.Mutex
)

// BlacklistToken marks a token as revoked until its natural expiry.
func BlacklistToken(token string, until time.Time) {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	pruneLocked()
	blacklist[token] = until
}

// IsTokenBlacklisted reports whether a token has been revoked.
func IsTokenBlacklisted(token string) bool {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	pruneLocked()
	until, ok := blacklist[token]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(blacklist, token)
		return false
	}
	return true
}

func pruneLocked() {
	now := time.Now()
	for tok, until := range blacklist {
		if now.After(until) {
			delete(blacklist, tok)
		}
	}
}
