package auth

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePassword enforces the account password policy.
func ValidatePassword(p string) error {
	if len([]rune(p)) < 8 {
		return errors.New("La contraseña debe tener al menos 8 caracteres")
	}
	if len(p) > maxPasswordBytes {
		return errors.New("La contraseña no puede superar los 72 bytes")
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return errors.New("La contraseña debe contener al menos una letra mayúscula")
	}
	if !lower {
		return errors.New("La contraseña debe contener al menos una letra minúscula")
	}
	if !digit {
		return errors.New("La contraseña debe contener al menos un número")
	}
	return nil
}
