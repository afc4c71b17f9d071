package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func setPoints(t *testing.T, env *testEnv, telegramID int64, points int) {
	t.Helper()
	if _, err := env.queue.DB().Exec(`UPDATE users SET points = ? WHERE telegram_id = ?`, points, telegramID); err != nil {
		t.Fatal(err)
	}
}

func TestLeaderboardOrderingAndFiltering(t *testing.T) {
	env := setupTestEnv(t)
	svc := NewLeaderboardService(env.users)

	env.addUser(t, 1, "first", true, false)
	env.addUser(t, 2, "second", true, false)
	env.addUser(t, 3, "ghost", false, false)
	env.addUser(t, 4, "third", true, false)
	setPoints(t, env, 1, 5)
	setPoints(t, env, 2, 9)
	setPoints(t, env, 3, 100)
	setPoints(t, env, 4, 5)

	top, err := svc.Top(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "second", top[0].Nickname)
	assert.Equal(t, "first", top[1].Nickname, "ties keep registration order")
	assert.Equal(t, "third", top[2].Nickname)

	top, err = svc.Top(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 9, top[0].Points)
}

func TestLeaderboardEmpty(t *testing.T) {
	env := setupTestEnv(t)
	top, err := NewLeaderboardService(env.users).Top(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.NotNil(t, top)
}

func TestLeaderboardSorted_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		env := setupTestEnv(t)
		svc := NewLeaderboardService(env.users)

		n := rapid.IntRange(0, 25).Draw(rt, "users")
		active := 0
		for i := 0; i < n; i++ {
			isActive := rapid.Bool().Draw(rt, "active")
			if isActive {
				active++
			}
			env.addUser(t, int64(i+1), fmt.Sprintf("u%d", i), isActive, false)
			setPoints(t, env, int64(i+1), rapid.IntRange(0, 20).Draw(rt, "points"))
		}
		limit := rapid.IntRange(-3, 30).Draw(rt, "limit")

		top, err := svc.Top(context.Background(), limit)
		if err != nil {
			rt.Fatal(err)
		}

		want := limit
		if want <= 0 {
			want = DefaultLeaderboardSize
		}
		if active < want {
			want = active
		}
		if len(top) != want {
			rt.Fatalf("got %d entries, want %d", len(top), want)
		}
		for i := 1; i < len(top); i++ {
			if top[i-1].Points < top[i].Points {
				rt.Fatalf("not sorted at %d: %d < %d", i, top[i-1].Points, top[i].Points)
			}
			if top[i-1].Points == top[i].Points && top[i-1].TelegramID > top[i].TelegramID {
				rt.Fatalf("tie order broken at %d", i)
			}
		}
	})
}
