package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost for client secret hashing
const BcryptCost = 12

// HashSecret hashes an API client secret for storage
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckSecret verifies a presented client secret against the stored hash
func CheckSecret(hashedSecret, secret string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
	return err == nil
}
