package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sharkbobo/sumatrapdf/binding"
	"github.com/sharkbobo/sumatrapdf/dsl"
	"github.com/sharkbobo/sumatrapdf/layout"
	"github.com/sharkbobo/sumatrapdf/markup"
	"github.com/sharkbobo/sumatrapdf/renderer"
	canvasrenderer "github.com/sharkbobo/sumatrapdf/renderer/canvas"
	rasterrenderer "github.com/sharkbobo/sumatrapdf/renderer/raster"
	"github.com/sharkbobo/sumatrapdf/store"
)

// config 汇总命令行参数。
type config struct {
	input     string
	output    string
	format    string
	profile   string
	debug     string
	data      string
	imagesDir string
	charset   string
	bbox      bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.input, "in", "", "输入文件（html/xhtml/md），为空时读取标准输入")
	flag.StringVar(&cfg.output, "out", "output/book.pdf", "输出路径")
	flag.StringVar(&cfg.format, "format", "", "输出格式 pdf|png，为空时按输出文件扩展名判断")
	flag.StringVar(&cfg.profile, "profile", "", "排版配置文件路径")
	flag.StringVar(&cfg.debug, "debug", "", "排版调试 JSON 输出路径")
	flag.StringVar(&cfg.data, "data", "", "绑定到文本 ${path} 占位符的 JSON 数据")
	flag.StringVar(&cfg.imagesDir, "images", "", "图片根目录，默认为输入文件所在目录")
	flag.StringVar(&cfg.charset, "charset", "", "HTML 的 Content-Type 提示，例如 \"text/html; charset=gbk\"")
	flag.BoolVar(&cfg.bbox, "bbox", false, "绘制每条指令的包围盒")
	flag.Parse()

	if err := run(cfg, os.Stdin); err != nil {
		log.Fatalf("生成失败: %v", err)
	}
	fmt.Printf("已生成：%s\n", cfg.output)
}

// run 串联配置、分词、排版与渲染。
func run(cfg config, stdin io.Reader) error {
	info, margin, err := loadProfile(cfg.profile)
	if err != nil {
		return err
	}

	format := strings.ToLower(cfg.format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(cfg.output)), ".")
	}
	var (
		backend layout.FontBackend
		r       renderer.Renderer
	)
	switch format {
	case "pdf":
		backend = canvasrenderer.NewBackend()
		r = canvasrenderer.NewRenderer(canvasrenderer.Options{
			Margin:   margin,
			Meta:     canvasrenderer.Meta{Title: titleOf(cfg.input), Creator: "sumatrapdf"},
			ShowBbox: cfg.bbox,
		})
	case "png":
		backend = rasterrenderer.NewBackend()
		r = rasterrenderer.NewRenderer(rasterrenderer.Options{Margin: margin, ShowBbox: cfg.bbox, PageGap: 8})
	default:
		return fmt.Errorf("不支持的输出格式 %q", format)
	}

	src, err := openSource(cfg, stdin)
	if err != nil {
		return err
	}
	if cfg.data != "" {
		data, err := binding.Load(strings.NewReader(cfg.data))
		if err != nil {
			return err
		}
		src = markup.Bind(src, data)
	}

	imagesDir := cfg.imagesDir
	if imagesDir == "" && cfg.input != "" {
		imagesDir = filepath.Dir(cfg.input)
	}
	fontCache := layout.NewFontCache(backend)
	defer fontCache.Close()

	result, err := layout.Build(src, info, layout.Options{
		Fonts:    fontCache,
		Document: store.New(imagesDir),
	})
	if err != nil {
		if len(result.Pages) == 0 {
			return fmt.Errorf("排版失败: %w", err)
		}
		log.Printf("警告: %v", err)
	}

	if cfg.debug != "" {
		if err := layout.WriteDebugJSON(result, cfg.debug); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}
	if len(result.Pages) == 0 {
		return fmt.Errorf("输入中没有可排版的内容")
	}

	out, err := r.Render(result.Pages)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if dir := filepath.Dir(cfg.output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(cfg.output, out, 0o644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}
	return nil
}

func loadProfile(path string) (layout.LayoutInfo, layout.Margin, error) {
	if path == "" {
		return layout.DefaultInfo(), layout.Margin{Top: 18, Right: 18, Bottom: 18, Left: 18}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return layout.LayoutInfo{}, layout.Margin{}, fmt.Errorf("无法打开配置文件 %s: %w", path, err)
	}
	defer file.Close()
	p, err := dsl.Parse(file)
	if err != nil {
		return layout.LayoutInfo{}, layout.Margin{}, fmt.Errorf("解析配置文件失败: %w", err)
	}
	info, margin, err := layout.InfoFromProfile(p)
	if err != nil {
		return layout.LayoutInfo{}, layout.Margin{}, fmt.Errorf("配置文件 %s: %w", path, err)
	}
	return info, margin, nil
}

func openSource(cfg config, stdin io.Reader) (markup.Source, error) {
	var data []byte
	var err error
	if cfg.input == "" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(cfg.input)
	}
	if err != nil {
		return nil, fmt.Errorf("读取输入失败: %w", err)
	}
	switch strings.ToLower(filepath.Ext(cfg.input)) {
	case ".md", ".markdown":
		return markup.NewMarkdown(data), nil
	}
	if cfg.charset != "" {
		return markup.NewHTMLCharset(bytes.NewReader(data), cfg.charset)
	}
	return markup.NewHTML(bytes.NewReader(data)), nil
}

func titleOf(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}
