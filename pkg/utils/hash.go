package utils

import "golang.org/x/crypto/bcrypt"

// passwordHashCost is the bcrypt work factor for account passwords. Signin
// hashes on every request, so the cost is a latency knob as much as a
// security one.
const passwordHashCost = 12

// HashPassword hashes an account password with bcrypt.
// bcrypt only reads the first 72 bytes of input.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	return string(bytes), err
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
