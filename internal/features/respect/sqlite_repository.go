// Package respect — sqlite_repository.go хранит записи уважения во встроенной SQLite через gorm.
// Пул ограничен одним соединением (см. db/sqlite), поэтому транзакции
// выполняются строго по очереди и чтение-изменение-запись атомарно.
package respect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"serotonyl.ru/respect-bot/internal/common"
)

// sqliteMember — строка таблицы respect_members для gorm.
type sqliteMember struct {
	ChatID        int64   `gorm:"primaryKey;autoIncrement:false"`
	MemberID      int64   `gorm:"primaryKey;autoIncrement:false"`
	DisplayName   string  `gorm:"not null"`
	Score         int     `gorm:"not null;default:1"`
	LastBonusDate *string `gorm:"type:text;index"` // YYYY-MM-DD или NULL
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (sqliteMember) TableName() string { return "respect_members" }

func (m *sqliteMember) toMember() *Member {
	out := &Member{
		ChatID:      m.ChatID,
		MemberID:    m.MemberID,
		DisplayName: m.DisplayName,
		Score:       m.Score,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.LastBonusDate != nil {
		out.LastBonusDate = *m.LastBonusDate
	}
	return out
}

// SQLiteRepository хранит записи уважения в SQLite.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository создаёт репозиторий и применяет схему.
func NewSQLiteRepository(db *gorm.DB) (*SQLiteRepository, error) {
	if err := db.AutoMigrate(&sqliteMember{}); err != nil {
		return nil, fmt.Errorf("миграция respect_members: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// EnsureMember создаёт запись со счётом 1 или обновляет только имя.
func (r *SQLiteRepository) EnsureMember(ctx context.Context, chatID, memberID int64, displayName string) error {
	rec := sqliteMember{
		ChatID:      chatID,
		MemberID:    memberID,
		DisplayName: displayName,
		Score:       DefaultScore,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}, {Name: "member_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"display_name": displayName,
			"updated_at":   time.Now().UTC(),
		}),
	}).Create(&rec).Error
	if err != nil {
		return storageError("ensure member", err)
	}
	return nil
}

// GetMember возвращает запись участника или common.ErrNotFound.
func (r *SQLiteRepository) GetMember(ctx context.Context, chatID, memberID int64) (*Member, error) {
	rec, err := r.take(r.db.WithContext(ctx), chatID, memberID)
	if err != nil {
		return nil, err
	}
	return rec.toMember(), nil
}

// AdjustScore меняет счёт на delta, не опуская его ниже 1.
func (r *SQLiteRepository) AdjustScore(ctx context.Context, chatID, memberID int64, delta int) (*ScoreChange, error) {
	var change *ScoreChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.take(tx, chatID, memberID)
		if err != nil {
			return err
		}
		before := rec.Score
		rec.Score = applyDelta(before, delta)
		rec.UpdatedAt = time.Now().UTC()

		if err := r.update(tx, rec, map[string]interface{}{
			"score":      rec.Score,
			"updated_at": rec.UpdatedAt,
		}); err != nil {
			return err
		}
		change = &ScoreChange{Member: *rec.toMember(), Before: before}
		return nil
	})
	if err != nil {
		return nil, txError("adjust score", err)
	}
	return change, nil
}

// ClaimDailyBonus начисляет бонус, если last_bonus_date отличается от today.
func (r *SQLiteRepository) ClaimDailyBonus(ctx context.Context, chatID, memberID int64, today string) (bool, *ScoreChange, error) {
	var (
		granted bool
		change  *ScoreChange
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.take(tx, chatID, memberID)
		if err != nil {
			return err
		}
		before := rec.Score
		if rec.LastBonusDate != nil && *rec.LastBonusDate == today {
			change = &ScoreChange{Member: *rec.toMember(), Before: before}
			return nil
		}

		day := today
		rec.Score = applyDelta(before, DailyBonus)
		rec.LastBonusDate = &day
		rec.UpdatedAt = time.Now().UTC()

		if err := r.update(tx, rec, map[string]interface{}{
			"score":           rec.Score,
			"last_bonus_date": day,
			"updated_at":      rec.UpdatedAt,
		}); err != nil {
			return err
		}
		granted = true
		change = &ScoreChange{Member: *rec.toMember(), Before: before}
		return nil
	})
	if err != nil {
		return false, nil, txError("claim bonus", err)
	}
	return granted, change, nil
}

// ListOthers возвращает участников чата, кроме excludeID.
// Сортировка побайтовая (BINARY), при равных именах — по member_id.
func (r *SQLiteRepository) ListOthers(ctx context.Context, chatID, excludeID int64) ([]Mention, error) {
	var out []Mention
	err := r.db.WithContext(ctx).
		Model(&sqliteMember{}).
		Select("member_id", "display_name").
		Where("chat_id = ? AND member_id <> ?", chatID, excludeID).
		Order("display_name, member_id").
		Scan(&out).Error
	if err != nil {
		return nil, storageError("list others", err)
	}
	return out, nil
}

// CountBonusClaims считает записи, последний бонус которых пришёлся на day.
func (r *SQLiteRepository) CountBonusClaims(ctx context.Context, day string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&sqliteMember{}).
		Where("last_bonus_date = ?", day).
		Count(&count).Error
	if err != nil {
		return 0, storageError("count bonus claims", err)
	}
	return int(count), nil
}

// Ping проверяет, что файл базы доступен.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return storageError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// Close закрывает соединение с базой.
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepository) take(db *gorm.DB, chatID, memberID int64) (*sqliteMember, error) {
	var rec sqliteMember
	err := db.Where("chat_id = ? AND member_id = ?", chatID, memberID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chat_id=%d member_id=%d: %w", chatID, memberID, common.ErrNotFound)
		}
		return nil, storageError("read member", err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) update(tx *gorm.DB, rec *sqliteMember, fields map[string]interface{}) error {
	err := tx.Model(&sqliteMember{}).
		Where("chat_id = ? AND member_id = ?", rec.ChatID, rec.MemberID).
		Updates(fields).Error
	if err != nil {
		return storageError("update member", err)
	}
	return nil
}

// txError оборачивает ошибки begin/commit транзакции gorm.
// Ошибки изнутри транзакции уже классифицированы и возвращаются как есть.
func txError(op string, err error) error {
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrStorageUnavailable) {
		return err
	}
	return storageError(op, err)
}
