package app_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hedvall/vakthund/internal/adapters/repository"
	"github.com/hedvall/vakthund/internal/app"
	"github.com/hedvall/vakthund/internal/domain/model"
	"github.com/hedvall/vakthund/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
	os.Exit(m.Run())
}

// fixedClock pins Now and passes After through to the wall clock; the
// politeness delay is set to zero in tests so After never actually waits.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time                         { return c.now }
func (c fixedClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// stubFeed scripts the upstream responses.
type stubFeed struct {
	mu        sync.Mutex
	latest    []model.Incident
	latestErr error
	byDay     map[string][]model.Incident
	dayErr    map[string]error
	dayCalls  []string
}

func (f *stubFeed) Latest(ctx context.Context) ([]model.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest, nil
}

func (f *stubFeed) Day(ctx context.Context, day time.Time) ([]model.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := day.Format("2006-01-02")
	f.dayCalls = append(f.dayCalls, key)
	if err := f.dayErr[key]; err != nil {
		return nil, err
	}
	return f.byDay[key], nil
}

func feedFormat(t time.Time) string {
	return t.Format("2006-01-02 15:04:05 -07:00")
}

func incident(id string, dt string) model.Incident {
	return model.Incident{
		ID:       model.ID(id),
		Summary:  "Rån mot butik i centrala staden.",
		Datetime: dt,
		Location: &model.Location{Name: "Stockholm", GPS: "59.33,18.06"},
	}
}

func newService(store repository.Store, f app.Feed, now time.Time, opts ...app.Option) *app.Service {
	base := []app.Option{
		app.WithStore(store),
		app.WithFeed(f),
		app.WithClock(fixedClock{now: now}),
		app.WithBackfillDelay(0),
		app.WithLogger(logger.Get()),
	}
	return app.New(append(base, opts...)...)
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	Convey("Given a feed where one historical day fails", t, func() {
		f := &stubFeed{
			byDay: map[string][]model.Incident{
				"2026-03-14": {incident("1", feedFormat(now.Add(-24 * time.Hour)))},
				"2026-03-12": {incident("2", feedFormat(now.Add(-72 * time.Hour)))},
			},
			dayErr: map[string]error{
				"2026-03-13": fmt.Errorf("upstream 502"),
			},
		}
		store := repository.NewMemoryStore()
		svc := newService(store, f, now, app.WithBackfillDays(3))

		Convey("When backfilling", func() {
			svc.Backfill(ctx)

			Convey("Then every day is attempted and the failure is skipped", func() {
				So(f.dayCalls, ShouldResemble, []string{"2026-03-14", "2026-03-13", "2026-03-12"})
				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})
	})
}

func TestSyncAndPrune(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	Convey("Given a store holding fresh and expired records", t, func() {
		store := repository.NewMemoryStore()
		fresh := incident("fresh", feedFormat(now.Add(-time.Hour)))
		expired := incident("expired", feedFormat(now.AddDate(0, 0, -10)))
		f := &stubFeed{latest: []model.Incident{fresh, expired}}
		svc := newService(store, f, now)

		Convey("When syncing and pruning", func() {
			So(svc.SyncLatest(ctx), ShouldBeNil)
			So(svc.Prune(ctx), ShouldBeNil)

			Convey("Then only records inside the retention horizon remain", func() {
				recs, err := svc.Recent(ctx, 10)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Key, ShouldEqual, "fresh")
			})

			Convey("And pruning again is a no-op", func() {
				So(svc.Prune(ctx), ShouldBeNil)
				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When the feed is unreachable", func() {
			f.latestErr = errors.New("connection refused")

			Convey("Then the sync reports the failure without touching the store", func() {
				So(svc.SyncLatest(ctx), ShouldNotBeNil)
				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})
	})

	Convey("Given the same identifier ingested twice with different payloads", t, func() {
		store := repository.NewMemoryStore()
		first := incident("77", feedFormat(now.Add(-3*time.Hour)))
		first.Description = "Polis på plats."
		second := incident("77", feedFormat(now.Add(-1*time.Hour)))
		second.Summary = "Rån mot butik, en gripen."
		second.Description = ""

		f := &stubFeed{latest: []model.Incident{first}}
		svc := newService(store, f, now)

		Convey("When both payloads are synced", func() {
			So(svc.SyncLatest(ctx), ShouldBeNil)
			f.mu.Lock()
			f.latest = []model.Incident{second}
			f.mu.Unlock()
			So(svc.SyncLatest(ctx), ShouldBeNil)

			Convey("Then one record remains with recomputed assessment and timestamp", func() {
				recs, err := svc.Recent(ctx, 10)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Summary, ShouldEqual, "Rån mot butik, en gripen.")
				So(recs[0].Description, ShouldEqual, "Polis på plats.")
				want, _ := time.Parse("2006-01-02 15:04:05 -07:00", second.Datetime)
				So(recs[0].Timestamp, ShouldEqual, want.UnixMilli())
			})
		})
	})

	Convey("Given an incident with an unparseable datetime", t, func() {
		store := repository.NewMemoryStore()
		bad := incident("b1", "not-a-date")
		f := &stubFeed{latest: []model.Incident{bad}}
		svc := newService(store, f, now)

		Convey("When it is synced", func() {
			So(svc.SyncLatest(ctx), ShouldBeNil)

			Convey("Then the timestamp falls back to the ingestion clock", func() {
				recs, err := svc.Recent(ctx, 1)
				So(err, ShouldBeNil)
				So(recs[0].Timestamp, ShouldEqual, now.UnixMilli())
			})
		})
	})
}

func TestInject(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	Convey("Given a running pipeline with a real record", t, func() {
		store := repository.NewMemoryStore()
		f := &stubFeed{latest: []model.Incident{incident("42", feedFormat(now.Add(-time.Hour)))}}
		svc := newService(store, f, now)
		So(svc.SyncLatest(ctx), ShouldBeNil)

		Convey("When a sandbox incident reuses a real identifier", func() {
			rec, err := svc.Inject(ctx, incident("42", feedFormat(now.Add(-time.Hour))))

			Convey("Then its key is namespaced away from the real record", func() {
				So(err, ShouldBeNil)
				So(rec.Key, ShouldEqual, "mock_42")
				So(rec.IsMockedData, ShouldBeTrue)

				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})

			Convey("And its timestamp carries the forward bias", func() {
				base, _ := time.Parse("2006-01-02 15:04:05 -07:00", feedFormat(now.Add(-time.Hour)))
				So(rec.Timestamp, ShouldEqual, base.UnixMilli()+10_000)
			})

			Convey("And it sorts above the real record with the same nominal time", func() {
				recs, err := svc.Recent(ctx, 10)
				So(err, ShouldBeNil)
				So(recs[0].Key, ShouldEqual, "mock_42")
			})
		})

		Convey("When a sandbox incident is deliberately malformed", func() {
			rec, err := svc.Inject(ctx, model.Incident{ID: "junk", Datetime: "garbage"})

			Convey("Then it is scored, not rejected", func() {
				So(err, ShouldBeNil)
				So(rec.Integrity.IsLowConfidence, ShouldBeTrue)
				So(rec.Integrity.Reasons, ShouldNotBeEmpty)
				So(rec.Timestamp, ShouldEqual, now.UnixMilli()+10_000)
			})
		})

		Convey("When a sandbox incident omits its identifier", func() {
			rec, err := svc.Inject(ctx, model.Incident{Summary: "test"})

			Convey("Then an identifier is generated under the sandbox namespace", func() {
				So(err, ShouldBeNil)
				So(rec.Key, ShouldStartWith, "mock_")
				So(len(rec.Key), ShouldBeGreaterThan, len("mock_"))
			})
		})
	})
}

func TestRecentClamp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	Convey("Given a pipeline with a small read cap", t, func() {
		store := repository.NewMemoryStore()
		var batch []model.Incident
		for i := 0; i < 5; i++ {
			batch = append(batch, incident(fmt.Sprintf("i%d", i), feedFormat(now.Add(-time.Duration(i+1)*time.Minute))))
		}
		f := &stubFeed{latest: batch}
		svc := newService(store, f, now, app.WithRecentLimit(3))
		So(svc.SyncLatest(ctx), ShouldBeNil)

		Convey("When asking for more than the cap", func() {
			recs, err := svc.Recent(ctx, 100)

			Convey("Then the cap wins", func() {
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 3)
			})
		})

		Convey("When asking with no explicit limit", func() {
			recs, err := svc.Recent(ctx, 0)

			Convey("Then the cap is used", func() {
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 3)
			})
		})
	})
}
