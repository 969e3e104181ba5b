package analysis

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StaleLister finds pending projects whose dispatch was lost (process
// restart between record creation and goroutine completion).
type StaleLister interface {
	ListStalePending(ctx context.Context, olderThan string) ([]string, error)
}

const staleAge = "10 minutes"

// Sweeper periodically re-dispatches projects stuck in pending. Dispatch
// is best-effort fire-and-forget, so this is the safety net that keeps
// lost triggers from stranding projects forever.
type Sweeper struct {
	lister     StaleLister
	dispatcher *Dispatcher
	schedule   string
	cron       *cron.Cron
}

func NewSweeper(lister StaleLister, dispatcher *Dispatcher, schedule string) *Sweeper {
	return &Sweeper{
		lister:     lister,
		dispatcher: dispatcher,
		schedule:   schedule,
	}
}

// Start registers the sweep on the cron schedule and begins running it.
func (s *Sweeper) Start() error {
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc(s.schedule, s.Sweep); err != nil {
		return err
	}

	log.Printf("[info] operation=sweeper schedule=%q message=stale-project sweeper started", s.schedule)
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the schedule; a sweep already in flight finishes.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep re-dispatches every stale pending project once.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ids, err := s.lister.ListStalePending(ctx, staleAge)
	if err != nil {
		log.Printf("[error] operation=sweep error=%v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	log.Printf("[info] operation=sweep count=%d message=re-dispatching stale pending projects", len(ids))
	for _, id := range ids {
		s.dispatcher.Dispatch(id)
	}
}
