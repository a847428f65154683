package util

import "github.com/google/uuid"

// GenerateID возвращает случайный UUIDv4 в строковом виде.
// Используется для присвоения уникальных идентификаторов задачам.
func GenerateID() string {
	return uuid.NewString()
}

// IsID reports whether s parses as a UUID.
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
