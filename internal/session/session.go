package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/pkg/logger"
)

// Credential 当前持有的承载凭证及从中解码出的角色
// 角色只允许来源于凭证本身；解码失败时角色为空，
// 此时凭证仍可用于传输层，但所有特权操作都会被拒绝
type Credential struct {
	Token string
	Role  domain.Role
}

// Store 进程级会话存储
// 登录/登出之外唯一的写入路径是收到 401 后的凭证清除；
// 任意数量的在途请求可以并发读取
type Store struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewStore 创建空会话存储
func NewStore() *Store {
	return &Store{}
}

// SetCredential 设置（或替换）凭证，并重新解码角色
func (s *Store) SetCredential(token string) {
	role := DecodeRole(token)
	s.mu.Lock()
	s.cred = &Credential{Token: token, Role: role}
	s.mu.Unlock()
	if role == "" {
		logger.Warnf("凭证角色解码失败，特权操作将被禁用")
	}
}

// Clear 清除凭证（登出或凭证失效）
func (s *Store) Clear() {
	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()
}

// Current 返回当前凭证的副本，未登录时返回 nil
func (s *Store) Current() *Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil
	}
	c := *s.cred
	return &c
}

// Token 返回当前承载令牌（传输层在每次请求发出时调用）
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return ""
	}
	return s.cred.Token
}

// Role 返回解码出的角色，未登录或解码失败时为空
func (s *Store) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return ""
	}
	return s.cred.Role
}

// IsAdmin 报告当前角色是否为 admin（仅用于界面门控）
func (s *Store) IsAdmin() bool {
	return s.Role() == domain.RoleAdmin
}

// HandleUnauthorized 任意请求收到 401 时由传输层回调，清除过期凭证
func (s *Store) HandleUnauthorized() {
	s.mu.Lock()
	had := s.cred != nil
	s.cred = nil
	s.mu.Unlock()
	if had {
		logger.Warnf("后端返回 401，已清除过期凭证，请重新登录")
	}
}

// DecodeRole 从 JWT 的中间段（base64url JSON）解码 role 字段
// 任何格式问题都返回空角色，绝不向外抛出
func DecodeRole(token string) domain.Role {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return ""
	}
	var claims struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return domain.Role(claims.Role)
}

// decodeSegment 解码 base64url 段（兼容有无 padding 两种形式）
func decodeSegment(seg string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(seg)
}
