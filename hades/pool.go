package hades

import (
	"sync"
)

// Pool hands out one Database per distinct driver identity, opening
// it on first request and reusing it afterwards. There is no
// package-level instance; construct a Pool and pass it to whatever
// needs connections.
type Pool struct {
	mutex       sync.Mutex
	databases   map[string]*Database
	configFuncs []DatabaseConfigFunc
}

// NewPool returns an empty Pool. The config funcs apply to every
// Database the pool opens.
func NewPool(configFuncs ...DatabaseConfigFunc) *Pool {
	return &Pool{
		databases:   map[string]*Database{},
		configFuncs: configFuncs,
	}
}

// Get returns the Database for the driver's identity, opening a new
// connection when the pool has not seen that identity before.
func (pool *Pool) Get(driver Driver) (*Database, error) {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	identity := driver.identity()

	if database, found := pool.databases[identity]; found {
		return database, nil
	}

	database, err := New(driver, pool.configFuncs...)
	if err != nil {
		return nil, err
	}

	pool.databases[identity] = database

	return database, nil
}

// Close closes every Database the pool opened and empties it. The
// first close error wins; later databases still get closed.
func (pool *Pool) Close() error {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	var firstErr error
	for identity, database := range pool.databases {
		if err := database.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(pool.databases, identity)
	}

	return firstErr
}
