package layout

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ConfigDecoder 只读取图片头部得到像素尺寸，不解码像素数据。
// 支持 gif、jpeg、png、bmp、tiff、webp。
type ConfigDecoder struct{}

func (ConfigDecoder) DecodeSize(data []byte) (float64, float64, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("图片数据为空")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("解析图片尺寸失败: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%s 图片尺寸无效 %dx%d", format, cfg.Width, cfg.Height)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}
