package media

import (
	"bytes"
	"net/url"
	"path"
	"strings"
)

// Format is the detected image container
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatGIF     Format = "gif"
	FormatHEIC    Format = "heic"
	FormatUnknown Format = "unknown"
)

// ContentType returns the MIME type stored with uploaded objects
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatGIF:
		return "image/gif"
	case FormatHEIC:
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

// heifBrands are the ISO-BMFF major brands used by HEIC/HEIF files
var heifBrands = map[string]struct{}{
	"heic": {}, "heix": {}, "hevc": {}, "hevx": {},
	"heim": {}, "heis": {}, "mif1": {}, "msf1": {},
}

// IsHEIF checks the first 12 bytes for an ftyp box with a HEIF brand
func IsHEIF(head []byte) bool {
	if len(head) < 12 {
		return false
	}
	if !bytes.Equal(head[4:8], []byte("ftyp")) {
		return false
	}
	_, ok := heifBrands[string(head[8:12])]
	return ok
}

// Classify detects the format from the content type, then the URL extension,
// then the payload signature
func Classify(contentType, rawURL string, data []byte) Format {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return FormatHEIC
	case "image/jpeg", "image/jpg":
		if IsHEIF(data) {
			return FormatHEIC
		}
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/webp":
		return FormatWebP
	case "image/gif":
		return FormatGIF
	}

	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".heic", ".heif":
			return FormatHEIC
		case ".jpg", ".jpeg":
			if IsHEIF(data) {
				return FormatHEIC
			}
			return FormatJPEG
		case ".png":
			return FormatPNG
		case ".webp":
			return FormatWebP
		case ".gif":
			return FormatGIF
		}
	}

	if IsHEIF(data) {
		return FormatHEIC
	}
	return sniff(data)
}

func sniff(data []byte) Format {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	case bytes.HasPrefix(data, []byte("GIF8")):
		return FormatGIF
	}
	return FormatUnknown
}

// jpegFilename rewrites a .heic/.heif suffix to .jpg
func jpegFilename(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".heic", ".heif"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)] + ".jpg"
		}
	}
	return name
}
