package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/viren/internal/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// runStoreContract exercises the behaviour every backend must share.
// userPrefix keeps runs against shared servers from colliding.
func runStoreContract(t *testing.T, s Store, userPrefix string) {
	ctx := context.Background()
	user := func(name string) string { return userPrefix + name }

	t.Run("get missing", func(t *testing.T) {
		_, ok, err := s.Get(ctx, user("nobody"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("upsert creates and mutates", func(t *testing.T) {
		id := user("create")
		t.Cleanup(func() { _ = s.Reset(ctx, id) })

		r, err := s.Upsert(ctx, id, func(r *Record) error {
			r.First = strPtr("who I am")
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, id, r.UserID)
		require.NotNil(t, r.First)
		assert.Equal(t, "who I am", *r.First)
		assert.Nil(t, r.Second)
		assert.False(t, r.Surrendered)
		assert.False(t, r.CreatedAt.IsZero())

		created := r.CreatedAt
		r, err = s.Upsert(ctx, id, func(r *Record) error {
			r.Second = strPtr("the project")
			r.Surrendered = true
			return nil
		})
		require.NoError(t, err)
		require.NotNil(t, r.First)
		assert.Equal(t, "who I am", *r.First)
		require.NotNil(t, r.Second)
		assert.True(t, r.Complete())
		assert.WithinDuration(t, created, r.CreatedAt, time.Millisecond)

		got, ok, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "the project", *got.Second)
	})

	t.Run("mutator error leaves no record", func(t *testing.T) {
		id := user("abort")
		errStop := errors.New("stop")

		_, err := s.Upsert(ctx, id, func(r *Record) error {
			r.First = strPtr("should not persist")
			return errStop
		})
		assert.ErrorIs(t, err, errStop)

		_, ok, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("mutator error keeps existing record", func(t *testing.T) {
		id := user("abort-existing")
		t.Cleanup(func() { _ = s.Reset(ctx, id) })

		_, err := s.Upsert(ctx, id, func(r *Record) error {
			r.First = strPtr("kept")
			return nil
		})
		require.NoError(t, err)

		_, err = s.Upsert(ctx, id, func(r *Record) error {
			r.First = strPtr("discarded")
			r.ChosenPath = oracle.Witch
			return errors.New("nope")
		})
		require.Error(t, err)

		got, ok, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "kept", *got.First)
		assert.Equal(t, oracle.Path(""), got.ChosenPath)
	})

	t.Run("chosen path round trips", func(t *testing.T) {
		id := user("path")
		t.Cleanup(func() { _ = s.Reset(ctx, id) })

		_, err := s.Upsert(ctx, id, func(r *Record) error {
			r.First = strPtr("")
			r.Second = strPtr("")
			r.Surrendered = true
			r.ChosenPath = oracle.FortyToes
			return nil
		})
		require.NoError(t, err)

		got, ok, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, oracle.FortyToes, got.ChosenPath)
		require.NotNil(t, got.First)
		assert.Equal(t, "", *got.First)
	})

	t.Run("reset removes record", func(t *testing.T) {
		id := user("reset")
		_, err := s.Upsert(ctx, id, func(r *Record) error {
			r.Surrendered = true
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, s.Reset(ctx, id))
		_, ok, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Reset(ctx, id), "reset of a missing record is not an error")
	})

	t.Run("concurrent upserts lose nothing", func(t *testing.T) {
		id := user("concurrent")
		t.Cleanup(func() { _ = s.Reset(ctx, id) })

		const writers = 10
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Upsert(ctx, id, func(r *Record) error {
					prev := ""
					if r.First != nil {
						prev = *r.First
					}
					r.First = strPtr(prev + "x")
					return nil
				})
				assert.NoError(t, err, "writer %d", i)
			}(i)
		}
		wg.Wait()

		got, ok, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, *got.First, writers)
	})

	t.Run("users are independent", func(t *testing.T) {
		a, b := user("indep-a"), user("indep-b")
		t.Cleanup(func() {
			_ = s.Reset(ctx, a)
			_ = s.Reset(ctx, b)
		})

		_, err := s.Upsert(ctx, a, func(r *Record) error {
			r.First = strPtr(fmt.Sprintf("for %s", a))
			return nil
		})
		require.NoError(t, err)

		_, ok, err := s.Get(ctx, b)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
