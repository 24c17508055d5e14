package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost keeps existing hashes verifiable; do not change it.
const PasswordCost = 10

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BcryptHasher adapts HashPassword and CheckPassword to a hasher value.
type BcryptHasher struct{}

func (BcryptHasher) Hash(password string) (string, error) {
	return HashPassword(password)
}

func (BcryptHasher) Check(hash, password string) bool {
	return CheckPassword(hash, password)
}
