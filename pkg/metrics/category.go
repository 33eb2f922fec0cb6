package metrics

import (
	"fmt"
	"strings"
)

// Category 指标类别位集合，注册表只保留与启用类别相交的指标.
type Category uint8

const (
	// CategoryCore 每次调用都会采集的核心指标.
	CategoryCore Category = 1 << iota
	// CategoryHTTPClient HTTP 客户端层面的指标.
	CategoryHTTPClient
	// CategoryStreaming 流式操作相关指标.
	CategoryStreaming

	// CategoryAll 全部类别.
	CategoryAll = CategoryCore | CategoryHTTPClient | CategoryStreaming
)

var categoryNames = []struct {
	c    Category
	name string
}{
	{CategoryCore, "core"},
	{CategoryHTTPClient, "http_client"},
	{CategoryStreaming, "streaming"},
}

// Has 报告 c 是否与 other 存在交集.
func (c Category) Has(other Category) bool {
	return c&other != 0
}

// Names 返回类别名称列表，按定义顺序排列.
func (c Category) Names() []string {
	names := make([]string, 0, len(categoryNames))

	for _, cn := range categoryNames {
		if c&cn.c != 0 {
			names = append(names, cn.name)
		}
	}

	return names
}

func (c Category) String() string {
	if c == CategoryAll {
		return "all"
	}

	return strings.Join(c.Names(), ",")
}

// MarshalText 以逗号分隔的名称编码类别.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(strings.Join(c.Names(), ",")), nil
}

// UnmarshalText 解析 MarshalText 的输出.
func (c *Category) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*c = 0

		return nil
	}

	parsed, err := ParseCategories(strings.Split(string(text), ","))
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

// ParseCategories 把配置中的类别名称解析为位集合，名称大小写不敏感.
func ParseCategories(names []string) (Category, error) {
	var c Category

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "all" {
			c |= CategoryAll

			continue
		}

		found := false

		for _, cn := range categoryNames {
			if cn.name == name {
				c |= cn.c
				found = true

				break
			}
		}

		if !found {
			return 0, fmt.Errorf("unknown metric category %q", raw)
		}
	}

	return c, nil
}
