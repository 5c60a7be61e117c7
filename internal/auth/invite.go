package auth

import "crypto/subtle"

// InviteValidator decides whether an admin invite credential presented at
// registration is genuine. Kept behind an interface so the concrete check
// (shared secret, allow-list, ...) is swappable without touching the
// registration flow.
type InviteValidator interface {
	ValidateInvite(token string) bool
}

type sharedSecretValidator struct {
	secret []byte
}

// NewSharedSecretInviteValidator validates invites against a single
// configured secret. An empty secret means admin self-registration is
// disabled entirely.
func NewSharedSecretInviteValidator(secret string) InviteValidator {
	return &sharedSecretValidator{secret: []byte(secret)}
}

func (v *sharedSecretValidator) ValidateInvite(token string) bool {
	if len(v.secret) == 0 || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare(v.secret, []byte(token)) == 1
}
