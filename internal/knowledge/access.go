package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IsVisible 判断actor是否可见某文档
// 规则按序短路：admin角色 -> 访问类别交集非空 -> 用户名在允许列表中
func IsVisible(actor Actor, meta DocumentMetadata) bool {
	if actor.IsAdmin() {
		return true
	}

	for _, category := range actor.AccessCategories {
		for _, allowed := range meta.AllowedCategories {
			if category == allowed {
				return true
			}
		}
	}

	for _, user := range meta.AllowedUsers {
		if actor.Username == user {
			return true
		}
	}

	return false
}

// VisibilityExpr 将可见性规则编译为Milvus布尔表达式，用于查询时下推过滤
// admin返回空串（不过滤）。表达式与IsVisible必须给出一致的可见性判定，
// 存储端过滤能力不完整时由调用方再做一次客户端过滤兜底
func VisibilityExpr(actor Actor) string {
	if actor.IsAdmin() {
		return ""
	}

	var clauses []string
	if len(actor.AccessCategories) > 0 {
		categories := make([]string, len(actor.AccessCategories))
		for i, category := range actor.AccessCategories {
			categories[i] = jsonQuote(category)
		}
		clauses = append(clauses, fmt.Sprintf(
			`json_contains_any(metadata["allowed_categories"], [%s])`,
			strings.Join(categories, ", "),
		))
	}
	clauses = append(clauses, fmt.Sprintf(
		`json_contains(metadata["allowed_users"], %s)`,
		jsonQuote(actor.Username),
	))

	return strings.Join(clauses, " or ")
}

// FilterVisible 客户端二次过滤，保持输入顺序
func FilterVisible(actor Actor, results []SearchResult) []SearchResult {
	filtered := make([]SearchResult, 0, len(results))
	for _, result := range results {
		if IsVisible(actor, result.Metadata) {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

func jsonQuote(s string) string {
	quoted, _ := json.Marshal(s)
	return string(quoted)
}
