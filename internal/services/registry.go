package services

import (
	"sync"
)

// 控制器由beego按请求反射创建，无法注入依赖，
// 因此服务实例以包级单例持有，由bootstrap在启动时装配
var (
	mu              sync.RWMutex
	documentService *DocumentService
	queryService    *QueryService
	indexService    *IndexService
)

// Configure 注册服务单例，启动时调用一次
func Configure(document *DocumentService, query *QueryService, index *IndexService) {
	mu.Lock()
	defer mu.Unlock()
	documentService = document
	queryService = query
	indexService = index
}

// Document 获取文档服务
func Document() *DocumentService {
	mu.RLock()
	defer mu.RUnlock()
	return documentService
}

// Query 获取问答服务
func Query() *QueryService {
	mu.RLock()
	defer mu.RUnlock()
	return queryService
}

// Index 获取索引管理服务
func Index() *IndexService {
	mu.RLock()
	defer mu.RUnlock()
	return indexService
}
