// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is applied once at startup; verification cost follows the hash.
const bcryptCost = 12

const minPasswordLength = 8

// ErrInvalidCredentials is returned for any username or password mismatch.
var ErrInvalidCredentials = errors.New("invalid username or password")

// BasicAuthManager holds the admin account with its password bcrypt-hashed.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes password so requests never see the plaintext.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	return newBasicAuthManager(username, password, bcryptCost)
}

func newBasicAuthManager(username, password string, cost int) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &BasicAuthManager{username: username, passwordHash: hash}, nil
}

// Username returns the admin account name.
func (m *BasicAuthManager) Username() string {
	return m.username
}

// Check compares a username and password against the admin account.
func (m *BasicAuthManager) Check(username, password string) error {
	// Both comparisons always run so timing does not reveal which part failed.
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	if !usernameMatch || !passwordMatch {
		return ErrInvalidCredentials
	}
	return nil
}

// ValidateCredentials decodes an Authorization: Basic header and checks it.
// It returns the authenticated username.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	encoded, ok := strings.CutPrefix(authHeader, "Basic ")
	if !ok {
		return "", fmt.Errorf("invalid authorization header format")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", fmt.Errorf("invalid credentials format")
	}
	if err := m.Check(username, password); err != nil {
		return "", err
	}
	return username, nil
}

// WWWAuthenticate is the challenge sent with basic-mode 401 responses.
func (m *BasicAuthManager) WWWAuthenticate() string {
	return `Basic realm="Bio-D-Scan", charset="UTF-8"`
}
