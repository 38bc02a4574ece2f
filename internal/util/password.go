package util

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes pw. cost <= 0 uses bcrypt.DefaultCost.
func HashPassword(pw string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
