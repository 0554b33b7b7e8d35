// Package respect реализует систему уважения: счёт участника в каждом чате,
// уровни и ежедневный бонус.
// models.go описывает структуры для хранения записей и входящих событий.
package respect

import "time"

// DefaultScore — счёт новой записи и нижняя граница счёта.
const DefaultScore = 1

// DailyBonus — сколько уважения даёт .bonus.
const DailyBonus = 1

// Member хранит уважение участника в конкретном чате.
// Ключ записи — пара (ChatID, MemberID).
type Member struct {
	ChatID        int64     `db:"chat_id"`
	MemberID      int64     `db:"member_id"`
	DisplayName   string    `db:"display_name"`    // Последнее увиденное имя
	Score         int       `db:"score"`           // Всегда >= 1
	LastBonusDate string    `db:"last_bonus_date"` // YYYY-MM-DD (UTC), "" — бонус ещё не брали
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Level возвращает уровень участника.
func (m *Member) Level() int {
	return Level(m.Score)
}

// Mention — участник, которого можно упомянуть в чате.
type Mention struct {
	MemberID    int64
	DisplayName string
}

// ScoreChange — результат атомарной мутации счёта.
// Before прочитан в том же атомарном шаге, что и запись изменения,
// поэтому по паре Before/Member.Score можно честно судить о повышении уровня.
type ScoreChange struct {
	Member Member
	Before int
}

// Participant — автор сообщения в чате.
type Participant struct {
	ID   int64
	Name string
}

// Event — входящее сообщение из чата в виде, не зависящем от Telegram.
type Event struct {
	ChatID    int64
	ActorID   int64
	ActorName string
	Text      string
	// Автор сообщения, на которое ответили; nil — это не ответ
	ReplyTo *Participant
}

// Actor возвращает автора события как Participant.
func (e *Event) Actor() Participant {
	return Participant{ID: e.ActorID, Name: e.ActorName}
}
