// Package auth 提供身份认证功能。
// 认证支持两种方式：配置文件中登记的 API Key（只保存 SHA-256 哈希），
// 以及由 API Key 换取的 JWT（HS256 签名）。
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 定义 JWT 相关的错误类型
var (
	// ErrInvalidToken 表示提供的令牌无效或格式错误
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken 表示令牌已过期
	ErrExpiredToken = errors.New("token has expired")
)

// issuer 令牌签发者
const issuer = "physlab"

// Claims 定义 JWT 令牌中的声明。
type Claims struct {
	// Role 持有者的角色，admin 可以清空历史
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager 负责令牌的签发和验证。
type JWTManager struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTManager 创建 JWT 管理器。
//
// 参数:
//   - secret: 签名密钥
//   - expiration: 令牌有效期
func NewJWTManager(secret string, expiration time.Duration) *JWTManager {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &JWTManager{
		secret:     []byte(secret),
		expiration: expiration,
	}
}

// Generate 为指定主体签发令牌，返回令牌字符串和过期时间。
func (m *JWTManager) Generate(subject, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.expiration)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate 验证令牌并返回其中的声明。
// 过期令牌返回 ErrExpiredToken，其余失败一律返回 ErrInvalidToken。
func (m *JWTManager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
