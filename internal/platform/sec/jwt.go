// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides session token signing and verification.
//
// # Architecture
//
// This package isolates security-sensitive code (token signing, credential
// fingerprints) from the domain logic. The middleware consumes it through the
// [middleware.TokenVerifier] interface.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrWeakSecret is returned when the signing secret is too short for HS256.
var ErrWeakSecret = errors.New("sec: signing secret must be at least 32 bytes")

// minSecretLength is the HS256 key size in bytes.
const minSecretLength = 32

// AuthClaims represents the payload embedded inside a session token.
//
// The upstream token travels inside the session token, so the gateway keeps
// no credential store of its own.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID        int64  `json:"uid"`
	UpstreamToken string `json:"upt"`
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a new TokenService.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return &TokenService{secret: []byte(secret), issuer: issuer}, nil
}

/*
GenerateAccessToken signs a session token for a tracking-service user.

Parameters:
  - userID: int64 (the user id on the tracking service)
  - upstreamToken: string (the OAuth bearer token of that service)
  - timeToLive: time.Duration

Returns:
  - string: the signed token
  - error: signing failures
*/
func (service *TokenService) GenerateAccessToken(userID int64, upstreamToken string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:        userID,
		UpstreamToken: upstreamToken,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature, issuer and expiry of a session token.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	}, jwt.WithIssuer(service.issuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
