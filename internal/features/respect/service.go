// Package respect — service.go содержит интерпретатор команд уважения.
// Сервис не хранит состояния: всё лежит в Store, поэтому его можно
// вызывать из любого числа горутин одновременно.
package respect

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/respect-bot/internal/common"
)

// Service превращает входящие события в мутации хранилища и ответы.
type Service struct {
	store Store
	now   func() time.Time // Источник времени для .bonus
}

// NewService создаёт интерпретатор поверх хранилища.
// now == nil — используется time.Now.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Handle обрабатывает одно сообщение из чата.
//
// Алгоритм:
//  1. Проверяем, что в событии есть чат и автор
//  2. EnsureMember для автора — всегда, даже если это не команда
//  3. Сравниваем текст с командами и выполняем нужную
//
// Ошибки хранилища возвращаются как есть. Отказы по бизнес-правилам
// (нет ответа, сам себе, бонус уже взят) — это обычные ответы.
func (s *Service) Handle(ctx context.Context, ev Event) ([]Response, error) {
	if err := s.Register(ctx, ev); err != nil {
		return nil, err
	}

	cmd := ParseCommand(ev.Text)
	switch cmd {
	case CommandAll:
		return s.mentionAll(ctx, ev)
	case CommandBonus:
		return s.claimBonus(ctx, ev)
	case CommandGive:
		return s.adjust(ctx, ev, +1)
	case CommandTake:
		return s.adjust(ctx, ev, -1)
	}
	return nil, nil
}

// Register только регистрирует автора события, команду не выполняет.
// Используется, когда команда отброшена лимитом запросов.
func (s *Service) Register(ctx context.Context, ev Event) error {
	if err := validate(ev); err != nil {
		return err
	}
	return s.store.EnsureMember(ctx, ev.ChatID, ev.ActorID, ev.ActorName)
}

// mentionAll — .all: упоминание всех, кроме автора.
func (s *Service) mentionAll(ctx context.Context, ev Event) ([]Response, error) {
	others, err := s.store.ListOthers(ctx, ev.ChatID, ev.ActorID)
	if err != nil {
		return nil, err
	}
	if len(others) == 0 {
		return []Response{{Kind: KindNobodyToMention, Subject: ev.Actor()}}, nil
	}
	return []Response{{Kind: KindMentionAll, Subject: ev.Actor(), Mentions: others}}, nil
}

// claimBonus — .bonus: раз в сутки (UTC) +1 к уважению автора.
func (s *Service) claimBonus(ctx context.Context, ev Event) ([]Response, error) {
	today := common.UTCDate(s.now())

	granted, change, err := s.store.ClaimDailyBonus(ctx, ev.ChatID, ev.ActorID, today)
	if err != nil {
		return nil, err
	}

	actor := ev.Actor()
	standing := Progress(change.Member.Score)
	if !granted {
		log.WithFields(log.Fields{
			"chat_id": ev.ChatID,
			"user_id": ev.ActorID,
			"date":    today,
		}).Debug("бонус уже получен сегодня")
		return []Response{{Kind: KindBonusCooldown, Subject: actor, Standing: standing}}, nil
	}

	out := []Response{{Kind: KindBonusClaimed, Subject: actor, Standing: standing}}
	return withLevelUp(out, actor, change), nil
}

// adjust — + / -: изменение уважения автору сообщения, на которое ответили.
func (s *Service) adjust(ctx context.Context, ev Event, delta int) ([]Response, error) {
	if ev.ReplyTo == nil {
		return []Response{{Kind: KindReplyRequired, Subject: ev.Actor()}}, nil
	}
	target := *ev.ReplyTo

	if err := s.store.EnsureMember(ctx, ev.ChatID, target.ID, target.Name); err != nil {
		return nil, err
	}

	if target.ID == ev.ActorID {
		return []Response{{Kind: KindSelfTarget, Subject: target}}, nil
	}

	change, err := s.store.AdjustScore(ctx, ev.ChatID, target.ID, delta)
	if err != nil {
		return nil, err
	}

	kind := KindRespectGiven
	if delta < 0 {
		kind = KindRespectTaken
	}

	log.WithFields(log.Fields{
		"chat_id":   ev.ChatID,
		"from_user": ev.ActorID,
		"to_user":   target.ID,
		"before":    change.Before,
		"after":     change.Member.Score,
	}).Debug("уважение изменено")

	out := []Response{{Kind: kind, Subject: target, Standing: Progress(change.Member.Score)}}
	return withLevelUp(out, target, change), nil
}

// withLevelUp добавляет уведомление о новом уровне, если он вырос.
func withLevelUp(out []Response, subject Participant, change *ScoreChange) []Response {
	if !LeveledUp(change.Before, change.Member.Score) {
		return out
	}
	return append(out, Response{
		Kind:    KindLevelUp,
		Subject: subject,
		Level:   Level(change.Member.Score),
	})
}

func validate(ev Event) error {
	if ev.ChatID == 0 {
		return fmt.Errorf("нет chat_id: %w", common.ErrInvalidEvent)
	}
	if ev.ActorID == 0 {
		return fmt.Errorf("нет автора (chat_id=%d): %w", ev.ChatID, common.ErrInvalidEvent)
	}
	if ev.ReplyTo != nil && ev.ReplyTo.ID == 0 {
		return fmt.Errorf("нет автора исходного сообщения (chat_id=%d): %w", ev.ChatID, common.ErrInvalidEvent)
	}
	return nil
}
