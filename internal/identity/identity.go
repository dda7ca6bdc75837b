package identity

import "strings"

// SafeKey converts a raw email address into a storage-safe identity key by
// replacing the characters that are unsafe in store paths ('.' and '@')
// with '-'. It is pure and deterministic. Two distinct real email addresses
// mapping to the same key is possible in theory (e.g. "a.b@c" and "a@b.c")
// but accepted as a practical non-issue; the key is used as the primary
// lookup key throughout the store.
func SafeKey(raw string) string {
	key := strings.ReplaceAll(raw, ".", "-")
	key = strings.ReplaceAll(key, "@", "-")
	return key
}

// Session identifies the calling user for a single orchestrator call. It is
// passed explicitly into every operation instead of being read from ambient
// state.
type Session struct {
	Email       string
	Key         string
	DisplayName string
}

// NewSession builds a Session from a resolved email and display name.
func NewSession(email, displayName string) Session {
	return Session{
		Email:       email,
		Key:         SafeKey(email),
		DisplayName: displayName,
	}
}
