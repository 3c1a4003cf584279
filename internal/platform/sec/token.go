// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec issues and verifies reader profile tokens.
//
// A profile token is an HS256 JWT whose subject is the profile id. There are
// no accounts: the token only selects which reading state a request works on.
package sec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("sec: invalid profile token")

// ProfileClaims is the payload of a profile token.
type ProfileClaims struct {
	jwt.RegisteredClaims

	// DisplayName is informational only.
	DisplayName string `json:"dnm,omitempty"`
}

// ProfileID returns the subject claim.
func (claims *ProfileClaims) ProfileID() string {
	return claims.Subject
}

// TokenService signs and verifies profile tokens with a shared secret.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a TokenService. The secret must not be empty.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("sec: token secret is empty")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer}, nil
}

// GenerateProfileToken creates a token for profileID valid for timeToLive.
func (service *TokenService) GenerateProfileToken(profileID, displayName string, timeToLive time.Duration) (string, error) {
	if profileID == "" {
		return "", fmt.Errorf("sec: profile id is empty")
	}

	currentTime := time.Now()
	claims := ProfileClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		DisplayName: displayName,
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature, issuer and expiry of tokenString.
func (service *TokenService) VerifyToken(tokenString string) (*ProfileClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ProfileClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return service.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ProfileClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
