package controllers

import (
	"net/http"
	"sync"
	"time"
)

// HealthProbe 组件就绪探测
type HealthProbe func() bool

var (
	probesMu sync.RWMutex
	probes   = make(map[string]HealthProbe)
)

// RegisterHealthProbe 注册组件探测，bootstrap装配时调用
func RegisterHealthProbe(name string, probe HealthProbe) {
	probesMu.Lock()
	defer probesMu.Unlock()
	probes[name] = probe
}

// HealthController 健康检查，不要求认证
type HealthController struct {
	BaseController
}

// Health 汇总各组件就绪状态，任一组件未就绪时整体降级
func (c *HealthController) Health() {
	probesMu.RLock()
	defer probesMu.RUnlock()

	components := make(map[string]bool, len(probes))
	healthy := true
	for name, probe := range probes {
		ok := probe()
		components[name] = ok
		if !ok {
			healthy = false
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, map[string]interface{}{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
