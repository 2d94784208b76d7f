package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/oriys/physlab/internal/config"
)

// ErrAPIKeyNotFound 表示请求的 API Key 未登记
var ErrAPIKeyNotFound = errors.New("api key not found")

// KeyPrefix 生成的 API Key 前缀
const KeyPrefix = "pl_"

// KeyRing 保存配置中登记的 API Key 哈希，实现 APIKeyValidator。
type KeyRing struct {
	keys []config.APIKeyConfig
}

// NewKeyRing 由配置创建 KeyRing，哈希统一转为小写
func NewKeyRing(keys []config.APIKeyConfig) *KeyRing {
	normalized := make([]config.APIKeyConfig, 0, len(keys))
	for _, k := range keys {
		k.Hash = strings.ToLower(strings.TrimSpace(k.Hash))
		if k.Hash == "" {
			continue
		}
		if k.Role == "" {
			k.Role = "user"
		}
		normalized = append(normalized, k)
	}
	return &KeyRing{keys: normalized}
}

// Len 返回登记的 Key 数量
func (kr *KeyRing) Len() int {
	return len(kr.keys)
}

// ValidateAPIKey 以常量时间比较哈希，匹配时返回对应的用户上下文
func (kr *KeyRing) ValidateAPIKey(key string) (*UserContext, error) {
	hash := []byte(HashAPIKey(key))
	for _, k := range kr.keys {
		if subtle.ConstantTimeCompare(hash, []byte(k.Hash)) == 1 {
			return &UserContext{UserID: k.Name, Role: k.Role, Method: "apikey"}, nil
		}
	}
	return nil, ErrAPIKeyNotFound
}

// GenerateAPIKey 生成一个新的 API Key。
// 返回原始 Key（以 pl_ 为前缀）和写入配置文件用的 SHA-256 哈希。
func GenerateAPIKey() (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	key := KeyPrefix + hex.EncodeToString(buf)
	return key, HashAPIKey(key), nil
}

// HashAPIKey 计算 API Key 的 SHA-256 哈希（十六进制编码）
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
