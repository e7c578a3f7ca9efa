package knowledge

import "sort"

// CitationParser 从模型回答中提取引用的来源序号（从1开始）
// 引用标记约定可替换，默认实现识别上标数字
type CitationParser interface {
	Parse(answer string) []int
}

// superscriptDigits 上标数字到序号的映射，模型按提示词约定用其标注来源
var superscriptDigits = map[rune]int{
	'¹': 1,
	'²': 2,
	'³': 3,
	'⁴': 4,
	'⁵': 5,
	'⁶': 6,
	'⁷': 7,
	'⁸': 8,
	'⁹': 9,
}

// SuperscriptParser 识别回答文本中的上标数字引用标记
type SuperscriptParser struct{}

// Parse 返回去重后升序的来源序号列表
func (SuperscriptParser) Parse(answer string) []int {
	seen := make(map[int]bool)
	for _, r := range answer {
		if n, ok := superscriptDigits[r]; ok {
			seen[n] = true
		}
	}

	ordinals := make([]int, 0, len(seen))
	for n := range seen {
		ordinals = append(ordinals, n)
	}
	sort.Ints(ordinals)
	return ordinals
}
