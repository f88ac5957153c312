// Package token 提供了租户管理面板所用 JSON Web Token 的生成与验证。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PanelTokenManager 负责管理面板 token 的生成和验证。
// token 中只携带租户标识，没有用户账号体系。
type PanelTokenManager struct {
	secretKey []byte
	tokenDur  time.Duration
}

// PanelClaims 定义了面板 token 中携带的自定义数据。
type PanelClaims struct {
	TenantID string `json:"tenantId"`
	jwt.RegisteredClaims
}

// NewPanelTokenManager 创建一个新的 PanelTokenManager 实例。
func NewPanelTokenManager(secret string, expireHours int) *PanelTokenManager {
	return &PanelTokenManager{
		secretKey: []byte(secret),
		tokenDur:  time.Hour * time.Duration(expireHours),
	}
}

// GenerateToken 为指定租户签发一个面板 token。
func (m *PanelTokenManager) GenerateToken(tenantID string) (string, error) {
	claims := PanelClaims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证给定的 token 字符串，有效时返回 PanelClaims。
func (m *PanelTokenManager) VerifyToken(tokenString string) (*PanelClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PanelClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*PanelClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
