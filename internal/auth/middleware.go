package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// contextKey 是用于在 context 中存储值的自定义类型
type contextKey string

// UserContextKey 请求上下文中存储认证用户的键
const UserContextKey contextKey = "user"

// RoleAdmin 管理员角色
const RoleAdmin = "admin"

// UserContext 存储已认证调用方的信息。
type UserContext struct {
	// UserID API Key 名称或 JWT 主体
	UserID string
	// Role 角色
	Role string
	// Method 认证方式：jwt 或 apikey
	Method string
}

// APIKeyValidator 定义了 API Key 验证器的接口。
type APIKeyValidator interface {
	ValidateAPIKey(key string) (*UserContext, error)
}

// Middleware 认证中间件，依次尝试 API Key 和 Bearer JWT。
type Middleware struct {
	jwt          *JWTManager
	apiKeyHeader string
	keyValidator APIKeyValidator
	enabled      bool
}

// NewMiddleware 创建认证中间件。enabled 为 false 时所有请求直接放行。
func NewMiddleware(jwt *JWTManager, apiKeyHeader string, keyValidator APIKeyValidator, enabled bool) *Middleware {
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	return &Middleware{
		jwt:          jwt,
		apiKeyHeader: apiKeyHeader,
		keyValidator: keyValidator,
		enabled:      enabled,
	}
}

// Enabled 返回是否启用认证
func (m *Middleware) Enabled() bool {
	return m.enabled
}

// Authenticate 验证请求身份，成功后将 UserContext 写入请求上下文。
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.identify(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
	})
}

// RequireRole 要求已认证用户具有指定角色，必须放在 Authenticate 之后。
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.enabled {
				next.ServeHTTP(w, r)
				return
			}
			user := GetUser(r.Context())
			if user == nil || user.Role != role {
				writeAuthError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identify 从请求头解析调用方身份
func (m *Middleware) identify(r *http.Request) (*UserContext, error) {
	if apiKey := r.Header.Get(m.apiKeyHeader); apiKey != "" && m.keyValidator != nil {
		if user, err := m.keyValidator.ValidateAPIKey(apiKey); err == nil {
			return user, nil
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") && m.jwt != nil {
		claims, err := m.jwt.Validate(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return nil, err
		}
		return &UserContext{UserID: claims.Subject, Role: claims.Role, Method: "jwt"}, nil
	}
	return nil, ErrInvalidToken
}

// GetUser 从请求上下文中提取已认证的用户信息，未认证时返回 nil
func GetUser(ctx context.Context) *UserContext {
	if user, ok := ctx.Value(UserContextKey).(*UserContext); ok {
		return user
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
