package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hedvall/vakthund/internal/app"
)

// virtualClock lets tests fire timers deterministically.
type virtualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []chan time.Time
}

func newVirtualClock(now time.Time) *virtualClock {
	return &virtualClock{now: now}
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.timers = append(c.timers, ch)
	c.mu.Unlock()
	return ch
}

// tick advances the clock and fires every armed timer, waiting briefly for
// the scheduler to arm one if it has not reached its select yet.
func (c *virtualClock) tick(d time.Duration) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.timers) > 0 {
			c.now = c.now.Add(d)
			fired := c.timers
			c.timers = nil
			now := c.now
			c.mu.Unlock()
			for _, ch := range fired {
				ch <- now
			}
			return true
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler on a virtual clock", t, func() {
		clock := newVirtualClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
		events := make(chan string, 16)

		sched := app.NewScheduler(10*time.Minute, clock,
			app.WithWarmup(func(ctx context.Context) { events <- "warmup" }),
		)
		sched.Start(context.Background(), func(ctx context.Context) { events <- "cycle" })
		Reset(sched.Stop)

		mustEvent := func() string {
			select {
			case e := <-events:
				return e
			case <-time.After(2 * time.Second):
				return "timeout"
			}
		}

		Convey("When it starts", func() {
			Convey("Then warmup runs before any cycle", func() {
				So(mustEvent(), ShouldEqual, "warmup")
				So(len(events), ShouldEqual, 0)
			})
		})

		Convey("When the interval elapses repeatedly", func() {
			So(mustEvent(), ShouldEqual, "warmup")

			So(clock.tick(10*time.Minute), ShouldBeTrue)
			So(mustEvent(), ShouldEqual, "cycle")

			So(clock.tick(10*time.Minute), ShouldBeTrue)
			So(mustEvent(), ShouldEqual, "cycle")

			Convey("Then exactly one cycle fires per interval", func() {
				So(len(events), ShouldEqual, 0)
			})
		})

		Convey("When it is stopped", func() {
			So(mustEvent(), ShouldEqual, "warmup")
			sched.Stop()

			Convey("Then stopping again is safe and no further cycles run", func() {
				sched.Stop()
				So(len(events), ShouldEqual, 0)
			})
		})
	})
}

func TestSchedulerSequentialCycles(t *testing.T) {
	Convey("Given a scheduler whose cycle runs long", t, func() {
		clock := newVirtualClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

		var mu sync.Mutex
		inFlight := 0
		maxInFlight := 0
		cycleDone := make(chan struct{}, 16)

		sched := app.NewScheduler(time.Minute, clock)
		sched.Start(context.Background(), func(ctx context.Context) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			cycleDone <- struct{}{}
		})
		Reset(sched.Stop)

		Convey("When several intervals elapse", func() {
			for i := 0; i < 3; i++ {
				So(clock.tick(time.Minute), ShouldBeTrue)
				select {
				case <-cycleDone:
				case <-time.After(2 * time.Second):
					So("cycle did not finish", ShouldBeEmpty)
				}
			}

			Convey("Then cycles never overlap: the timer rearms after completion", func() {
				mu.Lock()
				defer mu.Unlock()
				So(maxInFlight, ShouldEqual, 1)
			})
		})
	})
}
