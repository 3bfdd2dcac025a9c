// Package dbtest holds the behaviour every database backend must share.
package dbtest

import (
	"context"
	"testing"

	"github.com/LeJamon/offerd/internal/storage/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises db against the database.DB contract.
func Run(t *testing.T, db database.DB) {
	ctx := context.Background()

	t.Run("ReadWriteDelete", func(t *testing.T) {
		_, err := db.Read(ctx, []byte("missing"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)

		require.NoError(t, db.Write(ctx, []byte("k1"), []byte("v1")))
		got, err := db.Read(ctx, []byte("k1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)

		require.NoError(t, db.Delete(ctx, []byte("k1")))
		_, err = db.Read(ctx, []byte("k1"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("Batch", func(t *testing.T) {
		require.NoError(t, db.Write(ctx, []byte("b-gone"), []byte("x")))

		err := db.Batch(ctx, []database.BatchOperation{
			database.Put([]byte("b-1"), []byte("one")),
			database.Put([]byte("b-2"), []byte("two")),
			database.Del([]byte("b-gone")),
		})
		require.NoError(t, err)

		v, err := db.Read(ctx, []byte("b-2"))
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), v)
		_, err = db.Read(ctx, []byte("b-gone"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("BatchRejectsUnknownOp", func(t *testing.T) {
		err := db.Batch(ctx, []database.BatchOperation{
			database.Put([]byte("u-1"), []byte("one")),
			{Type: database.BatchOpType(99), Key: []byte("u-2")},
		})
		require.ErrorIs(t, err, database.ErrUnknownBatchOp)

		_, err = db.Read(ctx, []byte("u-1"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("IteratorRange", func(t *testing.T) {
		for _, k := range []string{"i-a", "i-b", "i-c", "i-d"} {
			require.NoError(t, db.Write(ctx, []byte(k), []byte("val-"+k)))
		}

		it, err := db.Iterator(ctx, []byte("i-b"), []byte("i-d"))
		require.NoError(t, err)
		defer it.Close()

		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
			assert.Equal(t, "val-"+string(it.Key()), string(it.Value()))
		}
		require.NoError(t, it.Error())
		assert.Equal(t, []string{"i-b", "i-c"}, keys)
	})

	t.Run("IteratorOpenBounds", func(t *testing.T) {
		it, err := db.Iterator(ctx, nil, nil)
		require.NoError(t, err)
		defer it.Close()

		var prev string
		count := 0
		for it.Next() {
			k := string(it.Key())
			assert.Less(t, prev, k)
			prev = k
			count++
		}
		require.NoError(t, it.Error())
		assert.GreaterOrEqual(t, count, 4)
	})
}
