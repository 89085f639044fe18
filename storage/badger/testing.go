package badger

// NewMemoryStores creates an in-memory backend with a cache tier and a run
// repository on it, for tests. Caller must close the backend.
func NewMemoryStores() (*CacheTier, *RunRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}
	return NewCacheTier(backend), NewRunRepository(backend), backend, nil
}
