package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 令牌无效
var ErrTokenInvalid = errors.New("无效的 token")

// UserJWTClaims 用户 JWT 声明，令牌由账号服务签发
type UserJWTClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// ServiceJWTClaims 内部服务 JWT 声明
type ServiceJWTClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// GenerateUserToken 签发用户令牌
func GenerateUserToken(secret string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserJWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// GenerateServiceToken 签发内部服务令牌
func GenerateServiceToken(secret, serviceName string, ttl time.Duration) (string, error) {
	serviceName = strings.ToLower(strings.TrimSpace(serviceName))
	if serviceName == "" {
		return "", ErrTokenInvalid
	}
	now := time.Now()
	claims := ServiceJWTClaims{
		Service: serviceName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   serviceName,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseUserToken 解析用户令牌
func ParseUserToken(secret, tokenString string) (*UserJWTClaims, error) {
	claims := &UserJWTClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseServiceToken 解析内部服务令牌
func ParseServiceToken(secret, tokenString string) (*ServiceJWTClaims, error) {
	claims := &ServiceJWTClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, err
	}
	claims.Service = strings.ToLower(strings.TrimSpace(claims.Service))
	if claims.Service == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func parseHS256(secret, tokenString string, claims jwt.Claims) error {
	if secret == "" {
		return ErrTokenInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
