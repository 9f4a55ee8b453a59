package auth

import "golang.org/x/crypto/bcrypt"

// dummyPasswordHash is bcrypt("dummy", cost 10). When a login targets an
// unknown email we still run one bcrypt comparison against this hash so the
// missing-user path takes the same time as the wrong-password path.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMye1VdLY0GtBEO1u0nlhMc7zcXYCWBBa7u"

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// CompareDummy burns one bcrypt comparison to equalize timing when no user
// record exists. It always reports a mismatch.
func CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(plain))
}
