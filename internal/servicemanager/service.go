package servicemanager

import "context"

// Service is anything the manager can start, stop, and health-check as a
// unit: the crawl loop, the RPC server, and the synthetic peer's connection
// pool are each registered as one.
type Service interface {
	// Init prepares the service without starting any long-running work.
	// Returning an error aborts startup of every service registered after it.
	Init(ctx context.Context) error

	// Start runs the service until ctx is canceled or a fatal error occurs.
	// Implementations must close readyCh once they can accept work.
	Start(ctx context.Context, readyCh chan struct{}) error

	// Stop releases resources acquired by Start. Called in reverse
	// registration order once every service has returned from Start.
	Stop(ctx context.Context) error

	// Health reports HTTP-status-style health. checkLiveness distinguishes
	// a liveness probe (is the process alive) from a readiness probe (can
	// it currently serve).
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
}
