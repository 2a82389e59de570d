// Package workers runs the server's background jobs. It defines the
// Worker interface, a Workers aggregate that starts and stops a set of
// workers together, and the Sweeper worker that keeps the in-memory
// caches from accumulating expired entries.
package workers

// Worker is a background job tied to the server's lifetime. Run starts
// the job without blocking; Stop signals it to finish and waits for it.
type Worker interface {
	Run()
	Stop()
}
