package analysis

import (
	"context"
	"log"
	"time"
)

const defaultTimeout = 10 * time.Minute

// Dispatcher starts analysis runs without blocking the caller. The upload
// handler hands a project id to Dispatch and sends its own response; the
// run's failure surface is the log and the project record, never the
// triggering request.
type Dispatcher struct {
	worker  *Worker
	timeout time.Duration
}

func NewDispatcher(worker *Worker) *Dispatcher {
	return &Dispatcher{worker: worker, timeout: defaultTimeout}
}

// Dispatch spawns the analysis in a background goroutine. The run is bound
// to its own context, not the request's: once dispatched it proceeds
// regardless of the caller's lifetime.
func (d *Dispatcher) Dispatch(projectID string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[error] operation=dispatch project_id=%s panic=%v", projectID, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.worker.Process(ctx, projectID); err != nil {
			log.Printf("[error] operation=dispatch project_id=%s error=%v", projectID, err)
		}
	}()
}

// ProcessSync runs the analysis inline and reports how long it took. The
// diagnostic re-processing endpoint uses this; the upload path never does.
func (d *Dispatcher) ProcessSync(ctx context.Context, projectID string) (time.Duration, error) {
	start := time.Now()
	err := d.worker.Process(ctx, projectID)
	return time.Since(start), err
}
