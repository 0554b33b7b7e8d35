// Package respect — responses.go описывает ответы интерпретатора команд.
// Ответ несёт только данные; текст и разметку собирает Handler.
package respect

// Kind — тип ответа.
type Kind int

const (
	KindMentionAll      Kind = iota + 1 // .all — призыв всех участников
	KindNobodyToMention                 // .all — звать некого
	KindBonusClaimed                    // .bonus — бонус получен
	KindBonusCooldown                   // .bonus — бонус уже был сегодня
	KindRespectGiven                    // + — уважение оказано
	KindRespectTaken                    // - — уважение уменьшено
	KindSelfTarget                      // +/- самому себе
	KindReplyRequired                   // +/- не ответом на сообщение
	KindLevelUp                         // новый уровень после мутации
)

var kindNames = map[Kind]string{
	KindMentionAll:      "mention_all",
	KindNobodyToMention: "nobody_to_mention",
	KindBonusClaimed:    "bonus_claimed",
	KindBonusCooldown:   "bonus_cooldown",
	KindRespectGiven:    "respect_given",
	KindRespectTaken:    "respect_taken",
	KindSelfTarget:      "self_target",
	KindReplyRequired:   "reply_required",
	KindLevelUp:         "level_up",
}

// String возвращает имя типа для логов и метрик.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Response — один ответ в чат.
type Response struct {
	Kind Kind
	// Участник, о котором ответ (автор .bonus, цель +/-, получивший уровень)
	Subject Participant
	// Заполнен для KindMentionAll, в порядке ListOthers
	Mentions []Mention
	// Заполнен для бонуса и +/-
	Standing Standing
	// Заполнен для KindLevelUp
	Level int
}
