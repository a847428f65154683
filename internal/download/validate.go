package download

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Result — ответ сервера на запрос изображения.
type Result struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// Validate проверяет, что ответ похож на пригодное изображение: тип
// image/* по заголовку или по содержимому, либо двоичные данные без типа
// размером не меньше minBytes. Иначе возвращается ошибка KindContent.
func Validate(res Result, minBytes int) error {
	if len(res.Body) == 0 {
		return &Error{Kind: KindContent, Detail: "empty response body"}
	}
	declared := mediaType(res.ContentType)
	sniffed := mediaType(http.DetectContentType(res.Body))

	if strings.HasPrefix(declared, "image/") || strings.HasPrefix(sniffed, "image/") {
		return nil
	}
	if (declared == "" || declared == "application/octet-stream" || declared == "binary/octet-stream") &&
		!strings.HasPrefix(sniffed, "text/") {
		if len(res.Body) >= minBytes {
			return nil
		}
		return &Error{Kind: KindContent, Detail: fmt.Sprintf("response too small (%d bytes)", len(res.Body))}
	}
	if declared == "" {
		declared = sniffed
	}
	return &Error{Kind: KindContent, Detail: "unexpected content type " + declared}
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/x-icon":  ".ico",
	"image/svg+xml": ".svg",
}

// Extension подбирает расширение файла: по содержимому, затем по последнему
// сегменту пути URL; параметры после "?" отбрасываются. По умолчанию ".jpg".
func Extension(body []byte, rawURL string) string {
	if ext, ok := imageExtensions[mediaType(http.DetectContentType(body))]; ok {
		return ext
	}
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" && u.Path != "/" {
		ext := strings.ToLower(path.Ext(u.Path))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".heic", ".tif", ".tiff", ".svg":
			if ext == ".jpeg" {
				return ".jpg"
			}
			return ext
		}
	}
	return ".jpg"
}
