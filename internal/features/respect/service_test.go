package respect

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/respect-bot/internal/common"
)

// fixedClock возвращает часы, которые можно двигать из теста.
func fixedClock(t time.Time) (func() time.Time, func(time.Duration)) {
	now := t
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func newTestService(t *testing.T) (*Service, *SQLiteRepository, func(time.Duration)) {
	t.Helper()
	repo := newTestStore(t)
	clock, advance := fixedClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	return NewService(repo, clock), repo, advance
}

func event(actor int64, text string) Event {
	return Event{
		ChatID:    testChat,
		ActorID:   actor,
		ActorName: fmt.Sprintf("@user%d", actor),
		Text:      text,
	}
}

func reply(actor, target int64, text string) Event {
	ev := event(actor, text)
	ev.ReplyTo = &Participant{ID: target, Name: fmt.Sprintf("@user%d", target)}
	return ev
}

func TestPlainMessageOnlyEnsuresActor(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	out, err := svc.Handle(ctx, event(1, "всем привет"))
	require.NoError(t, err)
	assert.Empty(t, out)

	m, err := repo.GetMember(ctx, testChat, 1)
	require.NoError(t, err)
	assert.Equal(t, "@user1", m.DisplayName)
	assert.Equal(t, 1, m.Score)
}

func TestInvalidEventTouchesNothing(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	_, err := svc.Handle(ctx, Event{ChatID: testChat, Text: ".bonus"})
	assert.ErrorIs(t, err, common.ErrInvalidEvent)

	_, err = svc.Handle(ctx, Event{ActorID: 1, Text: ".bonus"})
	assert.ErrorIs(t, err, common.ErrInvalidEvent)

	ev := event(1, "+")
	ev.ReplyTo = &Participant{}
	_, err = svc.Handle(ctx, ev)
	assert.ErrorIs(t, err, common.ErrInvalidEvent)

	_, err = repo.GetMember(ctx, testChat, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMentionAll(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	out, err := svc.Handle(ctx, event(1, ".all"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindNobodyToMention, out[0].Kind)

	_, err = svc.Handle(ctx, event(3, "hi"))
	require.NoError(t, err)
	_, err = svc.Handle(ctx, event(2, "hi"))
	require.NoError(t, err)

	out, err = svc.Handle(ctx, event(1, " .all "))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindMentionAll, out[0].Kind)
	assert.Equal(t, []Mention{
		{MemberID: 2, DisplayName: "@user2"},
		{MemberID: 3, DisplayName: "@user3"},
	}, out[0].Mentions)
}

func TestBonusClaimAndCooldown(t *testing.T) {
	ctx := context.Background()
	svc, _, advance := newTestService(t)

	out, err := svc.Handle(ctx, event(1, ".bonus"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindBonusClaimed, out[0].Kind)
	assert.Equal(t, Participant{ID: 1, Name: "@user1"}, out[0].Subject)
	assert.Equal(t, Progress(2), out[0].Standing)

	advance(11 * time.Hour) // 23:00 UTC того же дня
	out, err = svc.Handle(ctx, event(1, ".bonus"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindBonusCooldown, out[0].Kind)
	assert.Equal(t, 2, out[0].Standing.Score)

	advance(time.Hour) // полночь UTC — новый день
	out, err = svc.Handle(ctx, event(1, ".bonus"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindBonusClaimed, out[0].Kind)
	assert.Equal(t, 3, out[0].Standing.Score)
}

func TestBonusLevelUp(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	require.NoError(t, repo.EnsureMember(ctx, testChat, 1, "@user1"))
	_, err := repo.AdjustScore(ctx, testChat, 1, 9) // 10 — последнее очко первого уровня
	require.NoError(t, err)

	out, err := svc.Handle(ctx, event(1, ".bonus"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, KindBonusClaimed, out[0].Kind)
	assert.Equal(t, KindLevelUp, out[1].Kind)
	assert.Equal(t, 2, out[1].Level)
	assert.Equal(t, int64(1), out[1].Subject.ID)
}

func TestGiveAndTakeRequireReply(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	for _, text := range []string{"+", "-"} {
		out, err := svc.Handle(ctx, event(1, text))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, KindReplyRequired, out[0].Kind)
	}

	m, err := repo.GetMember(ctx, testChat, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Score)
}

func TestGiveRespectWithLevelUp(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	require.NoError(t, repo.EnsureMember(ctx, testChat, 2, "@user2"))
	_, err := repo.AdjustScore(ctx, testChat, 2, 8) // 9
	require.NoError(t, err)

	out, err := svc.Handle(ctx, reply(1, 2, "+"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindRespectGiven, out[0].Kind)
	assert.Equal(t, Progress(10), out[0].Standing)

	out, err = svc.Handle(ctx, reply(1, 2, "+"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, KindRespectGiven, out[0].Kind)
	assert.Equal(t, KindLevelUp, out[1].Kind)
	assert.Equal(t, 2, out[1].Level)
	assert.Equal(t, "@user2", out[1].Subject.Name)
}

func TestTakeRespectStopsAtFloor(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	out, err := svc.Handle(ctx, reply(1, 2, "-"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindRespectTaken, out[0].Kind)
	assert.Equal(t, 1, out[0].Standing.Score)

	// Цель зарегистрирована ответом, имя взято из исходного сообщения
	m, err := repo.GetMember(ctx, testChat, 2)
	require.NoError(t, err)
	assert.Equal(t, "@user2", m.DisplayName)
}

func TestScenarioFloorLevelAndSelfTarget(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	require.NoError(t, repo.EnsureMember(ctx, testChat, 1, "@user1"))
	change, err := repo.AdjustScore(ctx, testChat, 1, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, change.Member.Score)

	change, err = repo.AdjustScore(ctx, testChat, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 13, change.Member.Score)
	assert.Equal(t, 2, Level(change.Member.Score))
	assert.True(t, LeveledUp(1, 13))

	out, err := svc.Handle(ctx, reply(1, 1, "+"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindSelfTarget, out[0].Kind)

	m, err := repo.GetMember(ctx, testChat, 1)
	require.NoError(t, err)
	assert.Equal(t, 13, m.Score)
}

// failingStore отказывает на выбранной операции.
type failingStore struct {
	Store
	failOn string
	err    error
	calls  []string
}

func (f *failingStore) call(op string) error {
	f.calls = append(f.calls, op)
	if op == f.failOn {
		return f.err
	}
	return nil
}

func (f *failingStore) EnsureMember(ctx context.Context, chatID, memberID int64, name string) error {
	return f.call("ensure")
}

func (f *failingStore) AdjustScore(ctx context.Context, chatID, memberID int64, delta int) (*ScoreChange, error) {
	if err := f.call("adjust"); err != nil {
		return nil, err
	}
	return &ScoreChange{Member: Member{Score: 2}, Before: 1}, nil
}

func (f *failingStore) ClaimDailyBonus(ctx context.Context, chatID, memberID int64, today string) (bool, *ScoreChange, error) {
	return false, nil, f.call("bonus")
}

func (f *failingStore) ListOthers(ctx context.Context, chatID, excludeID int64) ([]Mention, error) {
	return nil, f.call("list")
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := fmt.Errorf("disk: %w", common.ErrStorageUnavailable)

	cases := []struct {
		failOn string
		ev     Event
	}{
		{"ensure", event(1, "hello")},
		{"list", event(1, ".all")},
		{"bonus", event(1, ".bonus")},
		{"adjust", reply(1, 2, "+")},
	}
	for _, tc := range cases {
		store := &failingStore{failOn: tc.failOn, err: boom}
		out, err := NewService(store, nil).Handle(ctx, tc.ev)
		assert.Nil(t, out, tc.failOn)
		assert.True(t, errors.Is(err, common.ErrStorageUnavailable), tc.failOn)
	}
}

func TestSelfTargetNeverAdjusts(t *testing.T) {
	store := &failingStore{}
	out, err := NewService(store, nil).Handle(context.Background(), reply(7, 7, "-"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindSelfTarget, out[0].Kind)
	assert.Equal(t, []string{"ensure", "ensure"}, store.calls)
}
