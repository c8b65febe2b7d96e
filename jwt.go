package main

import (
	"errors"
	"time"

	"herbtrace/models"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const tokenIssuer = "herbtrace"

type tokenClaims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// signJWT creates an HS256 token with 24h expiration. The role rides along
// for clients; the server always reloads the user.
func signJWT(secret string, u models.User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseJWT validates token and returns subject as ObjectID.
func parseJWT(secret, tokenStr string) (primitive.ObjectID, error) {
	var claims tokenClaims
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !tok.Valid {
		return primitive.NilObjectID, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return primitive.NilObjectID, errors.New("no subject")
	}
	return primitive.ObjectIDFromHex(claims.Subject)
}
