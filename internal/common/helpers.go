// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: работа с датами (единый часовой пояс UTC) и парсинг CSV.
package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout — формат календарной даты без времени (ISO 8601).
const DateLayout = "2006-01-02"

// UTCDate возвращает календарную дату момента t в UTC.
// Вся система считает «сегодня» только по UTC, иначе дневной бонус
// можно получить дважды, переехав через границу часовых поясов.
//
// Пример:
//
//	UTCDate(time.Date(2026, 10, 15, 23, 30, 0, 0, msk)) → "2026-10-15"
func UTCDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// PreviousUTCDate возвращает дату дня, предшествующего t (по UTC).
func PreviousUTCDate(t time.Time) string {
	return t.UTC().AddDate(0, 0, -1).Format(DateLayout)
}

// ParseInt64CSV разбирает строку вида "1, 2,3" в срез int64.
// Пустая строка — пустой срез без ошибки.
func ParseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
