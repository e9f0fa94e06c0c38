package layout

import (
	"errors"
	"fmt"
	"io"
)

// FontKey 是字体缓存的键，三个字段完全相同才视为同一字体。
type FontKey struct {
	Name  string
	Size  float64
	Style FontStyle
}

// FontCache 按 (名称, 字号, 样式) 去重字体句柄，条目不会失效或淘汰。
// 缓存由调用方创建并显式传入排版过程，可被多次排版复用；
// 内部没有加锁，调用方需保证同一时刻只有一个排版在使用它。
type FontCache struct {
	backend FontBackend
	fonts   map[FontKey]Font
	order   []Font
}

// NewFontCache 创建一个使用 backend 构造字体的缓存。
func NewFontCache(backend FontBackend) *FontCache {
	return &FontCache{
		backend: backend,
		fonts:   map[FontKey]Font{},
	}
}

// Backend 返回创建字体与测量文本所用的后端。
func (c *FontCache) Backend() FontBackend { return c.backend }

// Len 返回已缓存的字体数量。
func (c *FontCache) Len() int { return len(c.order) }

// GetFont 命中时直接返回已有句柄；未命中时通过后端创建并缓存。
// 创建失败不会写入缓存。
func (c *FontCache) GetFont(name string, size float64, style FontStyle) (Font, error) {
	key := FontKey{Name: name, Size: size, Style: style}
	if f, ok := c.fonts[key]; ok {
		return f, nil
	}
	if c.backend == nil {
		return nil, ErrNoFontBackend
	}
	f, err := c.backend.CreateFont(name, size, style)
	if err != nil {
		return nil, fmt.Errorf("创建字体 %s %gpt (%s) 失败: %w", name, size, style, err)
	}
	c.fonts[key] = f
	c.order = append(c.order, f)
	return f, nil
}

// first 返回最早缓存的字体，缓存为空时返回 nil。
func (c *FontCache) first() Font {
	if len(c.order) == 0 {
		return nil
	}
	return c.order[0]
}

// Close 释放所有实现了 io.Closer 的字体句柄并清空缓存。
func (c *FontCache) Close() error {
	var errs []error
	for _, f := range c.order {
		if closer, ok := f.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	c.fonts = map[FontKey]Font{}
	c.order = nil
	return errors.Join(errs...)
}
