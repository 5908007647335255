package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func result(winner int, at time.Time) Result {
	return Result{Winner: winner, Players: 2, Moves: 40, StartedAt: at.Add(-time.Minute), FinishedAt: at}
}

func TestResultValidate(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		r    Result
		ok   bool
	}{
		{"valid", result(2, now), true},
		{"no winner", Result{Players: 2, StartedAt: now, FinishedAt: now}, false},
		{"winner outside table", Result{Winner: 3, Players: 2, StartedAt: now, FinishedAt: now}, false},
		{"too many players", Result{Winner: 1, Players: 5, StartedAt: now, FinishedAt: now}, false},
		{"finished before start", Result{Winner: 1, Players: 1, StartedAt: now, FinishedAt: now.Add(-time.Second)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.r.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidResult)
			}
		})
	}
}

func TestMemoryRecorderRecent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRecorder()
	base := time.Now()

	for i := 1; i <= 3; i++ {
		require.NoError(t, m.Record(ctx, result(i%2+1, base.Add(time.Duration(i)*time.Second))))
	}
	require.ErrorIs(t, m.Record(ctx, Result{}), ErrInvalidResult)

	recent, err := m.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.True(t, recent[0].FinishedAt.After(recent[1].FinishedAt))

	all, err := m.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMatchResultMapping(t *testing.T) {
	r := result(1, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	row := fromResult(r)
	require.Equal(t, "match_results", row.TableName())
	require.Zero(t, row.ID)
	require.Equal(t, r, row.toResult())
}
