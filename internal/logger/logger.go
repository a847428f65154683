package logger

// Fields — набор структурированных полей записи лога.
type Fields map[string]any

// Logger — порт структурированного логирования, который используют все
// пакеты сервиса. Реализации: slog (консоль), fluent-bit и их комбинация.
type Logger interface {
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	// Error записывает ошибку вместе с объектом error.
	Error(msg string, err error, fields Fields)
	Debug(msg string, fields Fields)
	// WithFields создаёт новый логгер с уже добавленными полями.
	WithFields(fields Fields) Logger
}

type nop struct{}

// Nop returns a logger that discards everything.
func Nop() Logger { return nop{} }

func (nop) Info(string, Fields)         {}
func (nop) Warn(string, Fields)         {}
func (nop) Error(string, error, Fields) {}
func (nop) Debug(string, Fields)        {}
func (n nop) WithFields(Fields) Logger  { return n }
