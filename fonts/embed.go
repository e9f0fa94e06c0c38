// Package fonts 提供内置的 Go 字体族，也可从磁盘读取 TTF/OTF 字体。
package fonts

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
)

// family 依次为 常规、粗体、斜体、粗斜体；缺少的变体用相近的字重代替。
type family [4][]byte

var builtin = map[string]family{
	"go":           {goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
	"go mono":      {gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF},
	"go medium":    {gomedium.TTF, gobold.TTF, gomediumitalic.TTF, gobolditalic.TTF},
	"go smallcaps": {gosmallcaps.TTF, gosmallcaps.TTF, gosmallcapsitalic.TTF, gosmallcapsitalic.TTF},
}

// Families 返回内置字体族名称（小写，已排序）。
func Families() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load 返回字体数据。name 为内置字体族（大小写不敏感，可带 "builtin:" 前缀），
// 或以 .ttf/.otf 结尾的文件路径；文件字体不区分粗体与斜体。
func Load(name string, bold, italic bool) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "builtin:")))
	if f, ok := builtin[key]; ok {
		idx := 0
		if bold {
			idx |= 1
		}
		if italic {
			idx |= 2
		}
		return f[idx], nil
	}
	if strings.HasSuffix(key, ".ttf") || strings.HasSuffix(key, ".otf") {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("读取字体文件 %s 失败: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("未知字体 %q，可用: %s", name, strings.Join(Families(), ", "))
}
