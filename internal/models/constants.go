package models

const (
	StatusConfirmed   = "confirmed"
	StatusCanceled    = "canceled"
	StatusRescheduled = "rescheduled"
)

const (
	RoleMember = "member"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

const (
	// DateLayout is how booking dates are stored and exchanged.
	DateLayout = "2006-01-02"

	// SlotLayout is the clock format of time-slot labels.
	SlotLayout = "15:04"

	// DefaultCountCacheTTL время жизни кэшированных счётчиков слотов
	DefaultCountCacheTTL = 30 // секунды

	// AuditQueueSize размер очереди аудит-воркера
	AuditQueueSize = 1000

	// AuditRetryAttempts попыток записи аудита перед отбрасыванием
	AuditRetryAttempts = 3

	// DefaultRateLimitRPS запросов в секунду на одного актора
	DefaultRateLimitRPS = 5

	// DefaultRateLimitBurst всплеск запросов на одного актора
	DefaultRateLimitBurst = 10

	// DefaultMaxBookingDays максимальный горизонт бронирования
	DefaultMaxBookingDays = 365
)
