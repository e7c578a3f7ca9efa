package auth

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// User 账户信息
type User struct {
	Username         string   `json:"username"`
	PasswordHash     []byte   `json:"-"`
	Roles            []string `json:"roles"`
	AccessCategories []string `json:"access_categories"`
}

// UserRepository 用户存取抽象
type UserRepository interface {
	FindByUsername(username string) (*User, error)
	Authenticate(username, password string) (*User, error)
}

// UserSeed 初始账户配置
type UserSeed struct {
	Username   string
	Password   string
	Roles      []string
	Categories []string
}

// MemoryUserRepository 从配置种子装载的内存用户表
// 密码入库前做bcrypt哈希，明文只存在于配置装载过程中
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryUserRepository 创建内存用户表
func NewMemoryUserRepository(seeds []UserSeed) (*MemoryUserRepository, error) {
	repo := &MemoryUserRepository{users: make(map[string]*User, len(seeds))}
	for _, seed := range seeds {
		username := strings.TrimSpace(seed.Username)
		if username == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		repo.users[username] = &User{
			Username:         username,
			PasswordHash:     hash,
			Roles:            seed.Roles,
			AccessCategories: seed.Categories,
		}
	}
	return repo, nil
}

func (r *MemoryUserRepository) FindByUsername(username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Authenticate 校验用户名密码
// 用户不存在与密码错误返回同一错误，避免泄露账户是否存在
func (r *MemoryUserRepository) Authenticate(username, password string) (*User, error) {
	user, err := r.FindByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
