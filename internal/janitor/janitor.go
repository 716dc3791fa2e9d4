package janitor

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/orchestrator"
)

// Janitor periodically purges expired entries from the granule search cache
// so a long-running process does not accumulate dead keys.
type Janitor struct {
	scheduler *gocron.Scheduler
	cache     *orchestrator.SearchCache
	interval  time.Duration
}

// New creates a Janitor sweeping at the given interval.
func New(cache *orchestrator.SearchCache, interval time.Duration) *Janitor {
	return &Janitor{
		scheduler: gocron.NewScheduler(time.UTC),
		cache:     cache,
		interval:  interval,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (j *Janitor) Start() error {
	_, err := j.scheduler.Every(j.interval).Do(func() {
		if removed := j.cache.PurgeExpired(); removed > 0 {
			log.Printf("janitor: purged %d expired search cache entries", removed)
		}
	})
	if err != nil {
		return err
	}

	j.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels future sweeps.
func (j *Janitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}
