// Package token 提供了本地命令服务会话令牌的生成和验证功能。
//
// 服务只面向本机 UI 进程，没有多用户概念：令牌仅用于确认请求来自
// 完成过握手的窗口，避免本机其它进程随意调用命令接口。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager 负责管理会话令牌的生成和验证。
type JWTManager struct {
	secretKey []byte        // 用于签名和验证 token 的密钥
	tokenDur  time.Duration // token 的有效期
}

// SessionClaims 定义了会话令牌中携带的声明。
type SessionClaims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
// secret 为空时随机生成一个进程内密钥（重启后旧令牌即失效）。
func NewJWTManager(secret string, tokenExpireHours int) *JWTManager {
	if secret == "" {
		secret = randomSecret()
	}
	if tokenExpireHours <= 0 {
		tokenExpireHours = 24
	}
	return &JWTManager{
		secretKey: []byte(secret),
		tokenDur:  time.Hour * time.Duration(tokenExpireHours),
	}
}

// GenerateToken 为指定客户端签发一个新的会话令牌。
func (m *JWTManager) GenerateToken(client string) (string, error) {
	claims := SessionClaims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证给定的令牌字符串。
// 令牌有效时返回 SessionClaims，签名不匹配或已过期时返回错误。
func (m *JWTManager) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("解析 token 失败: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("无效的 token")
	}
	return claims, nil
}

// randomSecret 生成一个随机的进程内签名密钥。
func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
