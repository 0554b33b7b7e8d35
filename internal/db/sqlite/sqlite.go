// Package sqlite открывает встроенную базу SQLite через gorm.
// Драйвер glebarez/sqlite написан на чистом Go, cgo не нужен.
//
// Пул ограничен ОДНИМ соединением: SQLite всё равно пишет по одному,
// а так транзакции хранилища уважения выполняются строго последовательно
// и не ловят SQLITE_BUSY при апгрейде блокировки.
package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pragmas применяются к каждому новому соединению.
var pragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
}

// Open открывает (или создаёт) файл базы по пути path.
// debug включает логирование всех SQL-запросов gorm.
func Open(path string, debug bool) (*gorm.DB, error) {
	dsn := buildDSN(path)

	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия sqlite %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("база sqlite недоступна: %w", err)
	}

	log.WithField("path", path).Info("Подключение к SQLite установлено")
	return db, nil
}

func buildDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}
