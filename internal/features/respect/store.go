// Package respect — store.go описывает хранилище уважения.
// Реализации: PostgresRepository (pgx) и SQLiteRepository (gorm + sqlite).
package respect

import (
	"context"
	"math"
)

// Store — хранилище записей уважения с атомарными мутациями.
//
// Все мутации по одному ключу (chatID, memberID) линеаризуемы.
// Ошибки: common.ErrNotFound, если запись не создана через EnsureMember,
// common.ErrStorageUnavailable при сбое ввода-вывода. Повторов внутри нет.
type Store interface {
	// EnsureMember создаёт запись со счётом 1 или обновляет только имя.
	EnsureMember(ctx context.Context, chatID, memberID int64, displayName string) error
	// GetMember возвращает запись участника.
	GetMember(ctx context.Context, chatID, memberID int64) (*Member, error)
	// AdjustScore применяет score = max(1, score + delta).
	AdjustScore(ctx context.Context, chatID, memberID int64, delta int) (*ScoreChange, error)
	// ClaimDailyBonus начисляет DailyBonus, если сегодня (today, YYYY-MM-DD) бонус ещё не брали.
	ClaimDailyBonus(ctx context.Context, chatID, memberID int64, today string) (bool, *ScoreChange, error)
	// ListOthers возвращает всех участников чата, кроме excludeID, по имени.
	ListOthers(ctx context.Context, chatID, excludeID int64) ([]Mention, error)
	// CountBonusClaims считает записи, получившие бонус в день day.
	CountBonusClaims(ctx context.Context, day string) (int, error)
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	// Close освобождает соединения.
	Close() error
}

// applyDelta возвращает max(1, score + delta) без переполнения int.
func applyDelta(score, delta int) int {
	next := score + delta
	switch {
	case delta < 0 && next > score:
		return DefaultScore
	case delta > 0 && next < score:
		return math.MaxInt
	case next < DefaultScore:
		return DefaultScore
	}
	return next
}
