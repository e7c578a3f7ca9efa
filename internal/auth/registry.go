package auth

import "sync"

// 中间件与控制器由beego按请求驱动，认证组件以包级单例持有
var (
	mu       sync.RWMutex
	service  *JWTService
	userRepo UserRepository
)

// Configure 注册认证组件，启动时调用一次
func Configure(jwtService *JWTService, repo UserRepository) {
	mu.Lock()
	defer mu.Unlock()
	service = jwtService
	userRepo = repo
}

// Service 获取JWT服务
func Service() *JWTService {
	mu.RLock()
	defer mu.RUnlock()
	return service
}

// Users 获取用户仓库
func Users() UserRepository {
	mu.RLock()
	defer mu.RUnlock()
	return userRepo
}
