package buildnum

import (
	"regexp"
	"strconv"
)

const (
	tagsPrefix = "refs/tags/"
	markerStem = "build-number-"
)

// scope 描述一个 (仓库, 前缀) 计数器命名空间内的标记命名规则
type scope struct {
	// base 形如 "rel-build-number-" 或 "build-number-"，前缀可以包含 "/"
	base    string
	pattern *regexp.Regexp
}

func newScope(prefix string) *scope {
	base := markerStem
	if prefix != "" {
		base = prefix + "-" + markerStem
	}
	return &scope{
		base:    base,
		pattern: regexp.MustCompile("^" + regexp.QuoteMeta(tagsPrefix+base) + `(\d+)$`),
	}
}

// listPrefix 返回列出标记时使用的引用前缀
func (s *scope) listPrefix() string {
	return tagsPrefix + s.base
}

// markerName 返回构建号 n 对应的完整引用名
func (s *scope) markerName(n int) string {
	return tagsPrefix + s.base + strconv.Itoa(n)
}

// parse 解析引用名中的构建号；不是本命名空间的标记时返回 false
func (s *scope) parse(name string) (int, bool) {
	m := s.pattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
