package workers

// Workers starts and stops a fixed set of background workers together.
type Workers struct {
	workers []Worker
}

// New returns a Workers aggregate over the given workers.
func New(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Run starts every worker in registration order.
func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}

// Stop stops every worker in registration order and waits for each.
func (w *Workers) Stop() {
	for _, worker := range w.workers {
		worker.Stop()
	}
}
