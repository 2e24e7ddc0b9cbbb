package security

import "golang.org/x/crypto/bcrypt"

// Hashes are the only password form that ever leaves this package: the
// domain model, the store and the caches all carry the bcrypt output.

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword returns nil when plain matches hash.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
