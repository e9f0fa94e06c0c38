// Package binding 把文本中的 ${a.b[0]} 占位符替换为 JSON 数据中的值。
package binding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load 读取 JSON 数据，数字保留原始写法。
func Load(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("解析 JSON 数据失败: %w", err)
	}
	return data, nil
}

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则保留原占位符。
func Interpolate(text string, data any) string {
	if data == nil || !strings.Contains(text, "${") {
		return text
	}
	return string(InterpolateBytes([]byte(text), data))
}

// InterpolateBytes 与 Interpolate 相同；没有占位符时原样返回 text，不做拷贝。
func InterpolateBytes(text []byte, data any) []byte {
	if data == nil || !bytes.Contains(text, []byte("${")) {
		return text
	}
	return exprPattern.ReplaceAllFunc(text, func(match []byte) []byte {
		path := strings.TrimSpace(string(match[2 : len(match)-1]))
		if path == "" {
			return match
		}
		val, ok := Resolve(data, path)
		if !ok {
			return match
		}
		return []byte(format(val))
	})
}

// Resolve 按 a.b[0].c 形式的路径在 map/切片中取值。
func Resolve(data any, path string) (any, bool) {
	steps, ok := parsePath(path)
	if !ok {
		return nil, false
	}
	current := data
	for _, s := range steps {
		if s.key != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = m[s.key]; !ok {
				return nil, false
			}
			continue
		}
		arr, ok := current.([]any)
		if !ok || s.index < 0 || s.index >= len(arr) {
			return nil, false
		}
		current = arr[s.index]
	}
	return current, true
}

// step 是路径中的一段：字段名或数组下标。
type step struct {
	key   string
	index int
}

func parsePath(path string) ([]step, bool) {
	var steps []step
	for _, segment := range strings.Split(path, ".") {
		name := segment
		rest := ""
		if i := strings.IndexByte(segment, '['); i != -1 {
			name, rest = segment[:i], segment[i:]
		}
		if name != "" {
			steps = append(steps, step{key: name})
		} else if rest == "" {
			return nil, false
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end == -1 {
				return nil, false
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil {
				return nil, false
			}
			steps = append(steps, step{index: idx})
			rest = rest[end+1:]
		}
	}
	return steps, true
}

func format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
