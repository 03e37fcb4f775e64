package media

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/heic"
)

// JPEGQuality is the quality used for HEIC conversions
const JPEGQuality = 90

// Converter turns HEIC/HEIF payloads into JPEG
type Converter interface {
	ToJPEG(data []byte) ([]byte, error)
}

// HEICConverter decodes HEIC with a pure-Go decoder and re-encodes as JPEG
type HEICConverter struct {
	Quality int
}

// NewHEICConverter creates a converter at JPEGQuality
func NewHEICConverter() *HEICConverter {
	return &HEICConverter{Quality: JPEGQuality}
}

func (c *HEICConverter) ToJPEG(data []byte) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode heic: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
