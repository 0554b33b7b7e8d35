// Package respect — repository.go выполняет операции с таблицей respect_members в PostgreSQL.
// Мутации счёта идут в транзакции с блокировкой строки FOR UPDATE,
// поэтому параллельные команды по одной записи не теряют обновления.
package respect

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/respect-bot/internal/common"
)

// memberColumns — колонки записи в порядке scanMember.
const memberColumns = `
	chat_id, member_id, display_name, score,
	COALESCE(to_char(last_bonus_date, 'YYYY-MM-DD'), ''), created_at, updated_at
`

// PostgresRepository хранит записи уважения в PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository создаёт репозиторий поверх готового пула.
// Пул принадлежит репозиторию: Close закрывает его.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureMember создаёт запись со счётом 1.
// На конфликте по (chat_id, member_id) обновляет только имя, счёт и дату бонуса не трогает.
func (r *PostgresRepository) EnsureMember(ctx context.Context, chatID, memberID int64, displayName string) error {
	query := `
		INSERT INTO respect_members (chat_id, member_id, display_name, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, member_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, chatID, memberID, displayName, DefaultScore); err != nil {
		return storageError("ensure member", err)
	}
	return nil
}

// GetMember возвращает запись участника или common.ErrNotFound.
func (r *PostgresRepository) GetMember(ctx context.Context, chatID, memberID int64) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM respect_members WHERE chat_id = $1 AND member_id = $2`
	m, err := scanMember(r.db.QueryRow(ctx, query, chatID, memberID))
	if err != nil {
		return nil, lookupError(chatID, memberID, err)
	}
	return m, nil
}

// AdjustScore меняет счёт на delta, не опуская его ниже 1.
func (r *PostgresRepository) AdjustScore(ctx context.Context, chatID, memberID int64, delta int) (*ScoreChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storageError("begin", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer tx.Rollback(ctx)

	before, err := lockMember(ctx, tx, chatID, memberID)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE respect_members
		SET score = $3, updated_at = NOW()
		WHERE chat_id = $1 AND member_id = $2
		RETURNING ` + memberColumns
	after, err := scanMember(tx.QueryRow(ctx, query, chatID, memberID, applyDelta(before.Score, delta)))
	if err != nil {
		return nil, storageError("adjust score", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("commit", err)
	}
	return &ScoreChange{Member: *after, Before: before.Score}, nil
}

// ClaimDailyBonus начисляет бонус, если last_bonus_date отличается от today.
// Сравнение и запись идут под одной блокировкой строки — двойного бонуса не будет.
func (r *PostgresRepository) ClaimDailyBonus(ctx context.Context, chatID, memberID int64, today string) (bool, *ScoreChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, nil, storageError("begin", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockMember(ctx, tx, chatID, memberID)
	if err != nil {
		return false, nil, err
	}
	if current.LastBonusDate == today {
		// Бонус уже получен — ничего не меняем
		return false, &ScoreChange{Member: *current, Before: current.Score}, nil
	}

	query := `
		UPDATE respect_members
		SET score = $3, last_bonus_date = $4::date, updated_at = NOW()
		WHERE chat_id = $1 AND member_id = $2
		RETURNING ` + memberColumns
	after, err := scanMember(tx.QueryRow(ctx, query,
		chatID, memberID, applyDelta(current.Score, DailyBonus), today,
	))
	if err != nil {
		return false, nil, storageError("claim bonus", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, nil, storageError("commit", err)
	}
	return true, &ScoreChange{Member: *after, Before: current.Score}, nil
}

// ListOthers возвращает участников чата, кроме excludeID.
// Сортировка побайтовая (COLLATE "C"), при равных именах — по member_id.
func (r *PostgresRepository) ListOthers(ctx context.Context, chatID, excludeID int64) ([]Mention, error) {
	query := `
		SELECT member_id, display_name
		FROM respect_members
		WHERE chat_id = $1 AND member_id <> $2
		ORDER BY display_name COLLATE "C", member_id
	`
	rows, err := r.db.Query(ctx, query, chatID, excludeID)
	if err != nil {
		return nil, storageError("list others", err)
	}
	defer rows.Close()

	var out []Mention
	for rows.Next() {
		var m Mention
		if err := rows.Scan(&m.MemberID, &m.DisplayName); err != nil {
			return nil, storageError("scan mention", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("read mentions", err)
	}
	return out, nil
}

// CountBonusClaims считает записи, последний бонус которых пришёлся на day.
func (r *PostgresRepository) CountBonusClaims(ctx context.Context, day string) (int, error) {
	query := `SELECT COUNT(*) FROM respect_members WHERE last_bonus_date = $1::date`
	var count int
	if err := r.db.QueryRow(ctx, query, day).Scan(&count); err != nil {
		return 0, storageError("count bonus claims", err)
	}
	return count, nil
}

// Ping проверяет, что база доступна.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// Close закрывает пул соединений.
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}

// lockMember читает запись с блокировкой строки до конца транзакции.
func lockMember(ctx context.Context, tx pgx.Tx, chatID, memberID int64) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM respect_members
		WHERE chat_id = $1 AND member_id = $2
		FOR UPDATE
	`
	m, err := scanMember(tx.QueryRow(ctx, query, chatID, memberID))
	if err != nil {
		return nil, lookupError(chatID, memberID, err)
	}
	return m, nil
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(
		&m.ChatID, &m.MemberID, &m.DisplayName, &m.Score,
		&m.LastBonusDate, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// lookupError отличает отсутствие записи от сбоя базы.
func lookupError(chatID, memberID int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("chat_id=%d member_id=%d: %w", chatID, memberID, common.ErrNotFound)
	}
	return storageError("read member", err)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrStorageUnavailable, err)
}
