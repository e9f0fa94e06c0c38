// Package store 按 id 提供文档引用的图片数据，实现 layout.Document。
package store

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxRemoteSize 限制单张远程图片的大小。
const maxRemoteSize = 32 << 20

// Store 依次从内置数据、http(s) 与本地文件解析图片，结果（包括失败）按 id 缓存。
// 不支持并发使用。
type Store struct {
	// BaseDir 为本地图片的根目录；为空时拒绝所有本地文件。
	BaseDir string
	// Blobs 保存内置图片，键可以是 "built-in:" 之后的名称或 mobi 的 recindex。
	Blobs map[string][]byte

	httpClient *http.Client
	cache      map[string]entry
}

type entry struct {
	data []byte
	err  error
}

// New 创建 Store，http 请求默认 15 秒超时。
func New(baseDir string) *Store {
	return &Store{
		BaseDir:    baseDir,
		Blobs:      map[string][]byte{},
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      map[string]entry{},
	}
}

// SetHTTPClient 替换下载远程图片所用的客户端。
func (s *Store) SetHTTPClient(c *http.Client) {
	s.httpClient = c
}

// ImageData 实现 layout.Document，解析失败时返回 false。
func (s *Store) ImageData(id string) ([]byte, bool) {
	data, err := s.Fetch(id)
	return data, err == nil
}

// Fetch 返回 id 对应的数据及失败原因。
func (s *Store) Fetch(id string) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("图片 id 为空")
	}
	if s.cache == nil {
		s.cache = map[string]entry{}
	}
	if e, ok := s.cache[id]; ok {
		return e.data, e.err
	}
	data, err := s.resolve(id)
	s.cache[id] = entry{data: data, err: err}
	return data, err
}

func (s *Store) resolve(id string) ([]byte, error) {
	if name, ok := builtinName(id); ok {
		if data, ok := s.Blobs[name]; ok {
			return data, nil
		}
		return nil, fmt.Errorf("内置图片 %s 不存在", name)
	}
	if data, ok := s.Blobs[id]; ok {
		return data, nil
	}
	lower := strings.ToLower(id)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s.fetchRemote(id)
	}
	return s.readLocal(id)
}

func builtinName(id string) (string, bool) {
	for _, prefix := range []string{"built-in:", "builtin:"} {
		if strings.HasPrefix(id, prefix) {
			return strings.TrimPrefix(id, prefix), true
		}
	}
	return "", false
}

func (s *Store) fetchRemote(url string) ([]byte, error) {
	client := s.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("下载图片 %s 失败: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载图片 %s 失败: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", url, err)
	}
	if len(data) > maxRemoteSize {
		return nil, fmt.Errorf("图片 %s 超过 %d 字节", url, maxRemoteSize)
	}
	return data, nil
}

// readLocal 只读取 BaseDir 之内的文件，绝对路径和 ../ 都不能越出该目录。
func (s *Store) readLocal(id string) ([]byte, error) {
	base := strings.TrimSpace(s.BaseDir)
	if base == "" {
		return nil, fmt.Errorf("本地图片 %s 需要设置 BaseDir", id)
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("解析 BaseDir %s 失败: %w", s.BaseDir, err)
	}
	path := strings.TrimPrefix(id, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("图片路径 %s 超出 BaseDir", id)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", path, err)
	}
	return data, nil
}
