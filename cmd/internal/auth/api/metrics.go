package authapi

// AuthObserver receives the outcome of every auth operation. The app layer
// backs it with Prometheus counters; the default is a no-op.
type AuthObserver interface {
	ObserveAuth(op, outcome string)
}

// NoopAuthObserver is the default observer.
type NoopAuthObserver struct{}

func (NoopAuthObserver) ObserveAuth(_, _ string) {}
