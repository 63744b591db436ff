// Package auth provides credential verification against a small seeded user
// table. There are no sessions or tokens: the login endpoint verifies
// credentials and returns the user's profile, nothing more.
package auth

import (
	"crypto/subtle"

	"github.com/cartercloud/cartercloud/errors"
)

// User is the profile returned on successful verification.
type User struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	StorageLimit int64  `json:"storageLimit"`
}

// Verifier checks a username/password pair.
type Verifier interface {
	Verify(username, password string) (User, error)
}

// StaticVerifier verifies against the configured user table.
type StaticVerifier struct {
	users  map[string]Credential
	hasher Hasher
}

// NewStaticVerifier builds a verifier from config. Users with a PasswordHash
// are verified with bcrypt; the plaintext Password field is a dev fallback.
func NewStaticVerifier(cfg Config) *StaticVerifier {
	users := make(map[string]Credential, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Username] = u
	}
	return &StaticVerifier{users: users, hasher: NewBcryptHasher()}
}

// Verify checks the credentials and returns the user profile. The returned
// error is always the same regardless of whether the username or the
// password was wrong.
func (v *StaticVerifier) Verify(username, password string) (User, error) {
	cred, ok := v.users[username]
	if !ok {
		return User{}, errors.Unauthorized("Incorrect username or password.")
	}

	switch {
	case cred.PasswordHash != "":
		if err := v.hasher.Verify(password, cred.PasswordHash); err != nil {
			return User{}, errors.Unauthorized("Incorrect username or password.")
		}
	case cred.Password != "":
		if subtle.ConstantTimeCompare([]byte(password), []byte(cred.Password)) != 1 {
			return User{}, errors.Unauthorized("Incorrect username or password.")
		}
	default:
		return User{}, errors.Unauthorized("Incorrect username or password.")
	}

	return User{
		Username:     cred.Username,
		Role:         cred.Role,
		StorageLimit: cred.StorageLimit,
	}, nil
}

// compile-time check
var _ Verifier = (*StaticVerifier)(nil)
