package identity

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier checks a candidate password against a stored hash.
// Hashing itself is an external capability; this is the seam for it.
type PasswordVerifier interface {
	Verify(hash, candidate string) bool
}

// PasswordHasher produces a storable hash for a plaintext password.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// BcryptPasswords verifies and produces bcrypt hashes, matching the ones
// the user store was seeded with.
type BcryptPasswords struct {
	Cost int
}

func (b BcryptPasswords) Verify(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

func (b BcryptPasswords) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
