package storage

import "errors"

// Ошибки хранилищ
var (
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput некорректные данные или занятый ID
	ErrInvalidInput = errors.New("invalid input")
)
