package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// BasicVerifier проверяет логин/пароль дашборда. В конфиге лежит только bcrypt-хэш.
type BasicVerifier struct {
	username string
	hash     []byte
}

func NewBasicVerifier(username, passwordHash string) (*BasicVerifier, error) {
	if username == "" {
		return nil, errors.New("basic auth: username is empty")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("basic auth: password_hash is not a bcrypt hash: %w", err)
	}
	return &BasicVerifier{username: username, hash: []byte(passwordHash)}, nil
}

func (v *BasicVerifier) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	// Хэш сравниваем всегда, чтобы время ответа не выдавало существование логина
	hashErr := bcrypt.CompareHashAndPassword(v.hash, []byte(password))
	if !userOK || hashErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword для утилит и тестов: готовит значение auth.password_hash.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("basic auth: hash password: %w", err)
	}
	return string(h), nil
}
