// Package common — errors.go определяет ошибки, общие для всех модулей бота.
// Хранилище и интерпретатор команд возвращают их обёрнутыми через %w,
// вызывающий код проверяет тип через errors.Is.
package common

import "errors"

// Ошибки хранилища уважения
var (
	// ErrNotFound — запись участника не найдена (не было EnsureMember)
	ErrNotFound = errors.New("участник не найден")
	// ErrStorageUnavailable — сбой ввода-вывода в хранилище
	ErrStorageUnavailable = errors.New("хранилище недоступно")
)

// Ошибки входящих событий
var (
	// ErrInvalidEvent — в событии нет обязательных идентификаторов (чат, автор)
	ErrInvalidEvent = errors.New("некорректное событие")
)
