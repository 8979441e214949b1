package models

// Имена полей формы бронирования. Используются как ключи в Values/Errors
// и в ответах API.
const (
	FieldFullName = "full_name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldGuests   = "guests"
	FieldNotes    = "notes"
)

const (
	// MinNameLen минимальная длина имени
	MinNameLen = 2

	// MinPhoneLen минимальная длина телефона
	MinPhoneLen = 7

	// MinGuests и MaxGuests границы количества гостей
	MinGuests = 1
	MaxGuests = 12

	// DefaultGuests значение по умолчанию после сброса формы
	DefaultGuests = 2

	// NotesMaxLen максимальная длина комментария
	NotesMaxLen = 300
)

const (
	// DefaultSessionTTL время жизни состояния формы в Redis
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа в секундах

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 30

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах
)
