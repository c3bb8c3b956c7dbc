package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	JWTSecret         string = "Haggle"
	JWTExpirationTime        = time.Hour * 24
)

// UserClaims 定义了我们 Token 中需要包含的业务信息。
// Tier 是签发时刻的订阅档位快照，用于会话创建时落档。
type UserClaims struct {
	UserID uint64   `json:"user_id"`
	Roles  []string `json:"roles"`
	Tier   string   `json:"tier"`
	jwt.RegisteredClaims
}
