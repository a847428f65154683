package download

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind — класс ошибки скачивания, видимый в отчёте об ошибках.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindHTTPStatus Kind = "http_status"
	KindContent    Kind = "content"
)

// Error описывает неудачное скачивание одного изображения. Текст ошибки
// попадает в отчёт и никогда не бывает пустым.
type Error struct {
	Kind       Kind
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		text := http.StatusText(e.StatusCode)
		if text == "" {
			text = "unexpected status"
		}
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, text)
	case KindContent:
		return "invalid content: " + orUnknown(e.Detail)
	default:
		return "network error: " + orUnknown(e.Detail)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Cause returns the report string for any error returned by a Fetcher.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return (&Error{Kind: KindNetwork, Detail: err.Error()}).Error()
}

// KindOf classifies err; errors not produced by this package count as network errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindNetwork
}
