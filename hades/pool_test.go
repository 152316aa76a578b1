package hades_test

import (
	"fmt"
	"testing"

	"github.com/lunagic/hades/hades"
	"gotest.tools/v3/assert"
)

func Test_Pool(t *testing.T) {
	t.Parallel()

	pool := hades.NewPool()
	t.Cleanup(func() {
		assert.NilError(t, pool.Close())
	})

	path := fmt.Sprintf("%s/database.sqlite", t.TempDir())

	{ // The same identity gets the same database back
		first, err := pool.Get(hades.NewDriverSQLite(path))
		assert.NilError(t, err)

		second, err := pool.Get(hades.NewDriverSQLite(path))
		assert.NilError(t, err)

		assert.Assert(t, first == second)
	}

	{ // A different identity opens its own
		other, err := pool.Get(hades.NewDriverSQLite(fmt.Sprintf("%s/other.sqlite", t.TempDir())))
		assert.NilError(t, err)

		original, err := pool.Get(hades.NewDriverSQLite(path))
		assert.NilError(t, err)

		assert.Assert(t, other != original)
	}
}
