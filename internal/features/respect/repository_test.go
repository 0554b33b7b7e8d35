package respect

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/respect-bot/internal/common"
	"serotonyl.ru/respect-bot/internal/db/postgres"
)

// postgresDSNEnv — DSN тестовой базы; без него тесты PostgreSQL пропускаются.
const postgresDSNEnv = "RESPECT_TEST_POSTGRES_DSN"

// newPostgresStore возвращает репозиторий и отдельный чат для теста.
// Записи чата удаляются после теста.
func newPostgresStore(t *testing.T) (*PostgresRepository, int64) {
	t.Helper()
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s не задан", postgresDSNEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(ctx, pool))

	chatID := -time.Now().UnixNano()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM respect_members WHERE chat_id = $1", chatID)
		pool.Close()
	})
	return NewPostgresRepository(pool), chatID
}

func TestPostgresEnsureAndAdjust(t *testing.T) {
	ctx := context.Background()
	repo, chat := newPostgresStore(t)

	require.NoError(t, repo.EnsureMember(ctx, chat, 1, "@old"))
	change, err := repo.AdjustScore(ctx, chat, 1, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, change.Before)
	assert.Equal(t, 1, change.Member.Score)

	change, err = repo.AdjustScore(ctx, chat, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, change.Before)
	assert.Equal(t, 13, change.Member.Score)

	require.NoError(t, repo.EnsureMember(ctx, chat, 1, "@new"))
	m, err := repo.GetMember(ctx, chat, 1)
	require.NoError(t, err)
	assert.Equal(t, "@new", m.DisplayName)
	assert.Equal(t, 13, m.Score)
	assert.Equal(t, "", m.LastBonusDate)

	_, err = repo.GetMember(ctx, chat, 99)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.AdjustScore(ctx, chat, 99, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgresClaimDailyBonus(t *testing.T) {
	ctx := context.Background()
	repo, chat := newPostgresStore(t)
	require.NoError(t, repo.EnsureMember(ctx, chat, 1, "@a"))

	granted, change, err := repo.ClaimDailyBonus(ctx, chat, 1, "2026-10-15")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, 2, change.Member.Score)
	assert.Equal(t, "2026-10-15", change.Member.LastBonusDate)

	granted, change, err = repo.ClaimDailyBonus(ctx, chat, 1, "2026-10-15")
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Equal(t, 2, change.Member.Score)

	granted, _, err = repo.ClaimDailyBonus(ctx, chat, 1, "2026-10-16")
	require.NoError(t, err)
	assert.True(t, granted)

	// Счётчик общий для всех чатов базы, поэтому проверяем нижнюю границу
	count, err := repo.CountBonusClaims(ctx, "2026-10-16")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
}

func TestPostgresConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	repo, chat := newPostgresStore(t)
	require.NoError(t, repo.EnsureMember(ctx, chat, 1, "@a"))
	require.NoError(t, repo.EnsureMember(ctx, chat, 2, "@b"))

	const n = 30
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := repo.AdjustScore(ctx, chat, 1, 1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			ok, _, err := repo.ClaimDailyBonus(ctx, chat, 2, "2026-10-15")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	m, err := repo.GetMember(ctx, chat, 1)
	require.NoError(t, err)
	assert.Equal(t, 1+n, m.Score)

	assert.Equal(t, 1, granted)
	m, err = repo.GetMember(ctx, chat, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Score)
}

func TestPostgresListOthersByteOrder(t *testing.T) {
	ctx := context.Background()
	repo, chat := newPostgresStore(t)

	for _, m := range []Mention{
		{MemberID: 1, DisplayName: "Борис"},
		{MemberID: 2, DisplayName: "@anna"},
		{MemberID: 5, DisplayName: "Same"},
		{MemberID: 3, DisplayName: "Same"},
		{MemberID: 4, DisplayName: "@Zed"},
	} {
		require.NoError(t, repo.EnsureMember(ctx, chat, m.MemberID, m.DisplayName))
	}

	got, err := repo.ListOthers(ctx, chat, 1)
	require.NoError(t, err)
	assert.Equal(t, []Mention{
		{MemberID: 4, DisplayName: "@Zed"},
		{MemberID: 2, DisplayName: "@anna"},
		{MemberID: 3, DisplayName: "Same"},
		{MemberID: 5, DisplayName: "Same"},
	}, got)
}

func TestPostgresClosedPoolIsUnavailable(t *testing.T) {
	repo, _ := newPostgresStore(t)
	require.NoError(t, repo.Close())

	for name, op := range storeOps(repo) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(context.Background()), common.ErrStorageUnavailable)
		})
	}
}
