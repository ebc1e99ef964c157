package errreg_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/okian/mu3/internal/adapters/storage"
	"github.com/okian/mu3/internal/errreg"
	"github.com/okian/mu3/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type failingStore struct{ storage.Store }

func (failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestRecord(t *testing.T) {
	Convey("Given a registry backed by memory storage", t, func() {
		ctx := context.Background()
		store := storage.NewMemory()
		reg := errreg.New(errreg.WithStore(store))

		Convey("When an error is recorded with defaults", func() {
			rec := reg.Record(ctx, errors.New("boom"), "", "", errreg.Options{URL: "/battle"})

			Convey("Then it is classified unknown/medium with a generated id", func() {
				So(rec.Category, ShouldEqual, errreg.CategoryUnknown)
				So(rec.Severity, ShouldEqual, errreg.SeverityMedium)
				So(rec.Message, ShouldEqual, "boom")
				So(rec.URL, ShouldEqual, "/battle")
				So(strings.HasPrefix(rec.ID, "err_"), ShouldBeTrue)
				parts := strings.Split(rec.ID, "_")
				So(len(parts), ShouldEqual, 3)
				So(len(parts[2]), ShouldEqual, 9)
				So(rec.Timestamp.IsZero(), ShouldBeFalse)
			})

			Convey("Then it is mirrored to storage", func() {
				var mirrored []errreg.Record
				So(storage.GetJSON(ctx, store, storage.KeyErrors, &mirrored), ShouldBeNil)
				So(len(mirrored), ShouldEqual, 1)
				So(mirrored[0].ID, ShouldEqual, rec.ID)
			})
		})

		Convey("When 150 errors are recorded", func() {
			for i := 0; i < 150; i++ {
				reg.RecordMessage(ctx, fmt.Sprintf("e%d", i), errreg.CategoryNetwork, errreg.SeverityLow, errreg.Options{Quiet: true})
			}

			Convey("Then the newest 100 are kept, newest first", func() {
				all := reg.Errors(errreg.Filter{})
				So(reg.Len(), ShouldEqual, 100)
				So(all[0].Message, ShouldEqual, "e149")
				So(all[99].Message, ShouldEqual, "e50")
			})

			Convey("Then only the newest 10 are mirrored", func() {
				var mirrored []errreg.Record
				So(storage.GetJSON(ctx, store, storage.KeyErrors, &mirrored), ShouldBeNil)
				So(len(mirrored), ShouldEqual, 10)
				So(mirrored[0].Message, ShouldEqual, "e149")
				So(mirrored[9].Message, ShouldEqual, "e140")
			})
		})

		Convey("When the fallback action panics", func() {
			ran := false
			So(func() {
				reg.RecordMessage(ctx, "x", errreg.CategorySystem, errreg.SeverityHigh, errreg.Options{
					Fallback: func() { ran = true; panic("fallback failed") },
				})
			}, ShouldNotPanic)

			Convey("Then the record is still kept", func() {
				So(ran, ShouldBeTrue)
				So(reg.Len(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a registry whose storage rejects writes", t, func() {
		reg := errreg.New(errreg.WithStore(failingStore{storage.NewMemory()}))

		Convey("Then recording still succeeds", func() {
			So(func() { reg.System(context.Background(), "s", nil) }, ShouldNotPanic)
			So(reg.Len(), ShouldEqual, 1)
		})
	})
}

func TestHelpersAndQueries(t *testing.T) {
	Convey("Given one record from each helper", t, func() {
		ctx := context.Background()
		var reported []errreg.Record
		reg := errreg.New(errreg.WithReporter(func(_ context.Context, r errreg.Record) {
			reported = append(reported, r)
		}))

		reg.Network(ctx, "offline", nil)
		reg.ExternalAPI(ctx, "provider down", map[string]any{"model": "gpt-5"})
		reg.Validation(ctx, "too short", nil)
		reg.System(ctx, "nil map", nil)
		reg.Critical(ctx, "render failed", nil)

		Convey("Then each helper classifies as documented", func() {
			all := reg.Errors(errreg.Filter{})
			So(len(all), ShouldEqual, 5)
			So(all[0].Category, ShouldEqual, errreg.CategorySystem)
			So(all[0].Severity, ShouldEqual, errreg.SeverityCritical)
			So(all[3].Category, ShouldEqual, errreg.CategoryExternalAPI)
			So(all[3].Details["model"], ShouldEqual, "gpt-5")
			So(all[4].Severity, ShouldEqual, errreg.SeverityMedium)
		})

		Convey("Then only the critical record is reported", func() {
			So(len(reported), ShouldEqual, 1)
			So(reported[0].Message, ShouldEqual, "render failed")
		})

		Convey("Then filters narrow by category and severity", func() {
			So(len(reg.Errors(errreg.Filter{Category: errreg.CategorySystem})), ShouldEqual, 2)
			So(len(reg.Errors(errreg.Filter{Severity: errreg.SeverityMedium})), ShouldEqual, 2)
			So(len(reg.Errors(errreg.Filter{Category: errreg.CategorySystem, Severity: errreg.SeverityHigh})), ShouldEqual, 1)
		})

		Convey("Then stats are keyed CATEGORY_SEVERITY", func() {
			stats := reg.Stats()
			So(stats["NETWORK_MEDIUM"], ShouldEqual, 1)
			So(stats["EXTERNAL_API_MEDIUM"], ShouldEqual, 1)
			So(stats["VALIDATION_LOW"], ShouldEqual, 1)
			So(stats["SYSTEM_HIGH"], ShouldEqual, 1)
			So(stats["SYSTEM_CRITICAL"], ShouldEqual, 1)
		})
	})
}

func TestClear(t *testing.T) {
	Convey("Given a registry with a mirrored record", t, func() {
		ctx := context.Background()
		store := storage.NewMemory()
		reg := errreg.New(errreg.WithStore(store), errreg.WithCapacity(3), errreg.WithMirrorSize(2))
		reg.Network(ctx, "a", nil)

		Convey("When it is cleared", func() {
			So(reg.Clear(ctx), ShouldBeNil)

			Convey("Then memory and storage are empty", func() {
				So(reg.Len(), ShouldEqual, 0)
				_, err := store.Get(ctx, storage.KeyErrors)
				So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then clearing again is harmless", func() {
				So(reg.Clear(ctx), ShouldBeNil)
			})
		})
	})
}

func TestGuardAndRecover(t *testing.T) {
	Convey("Given a registry", t, func() {
		ctx := context.Background()
		reg := errreg.New()

		Convey("When a guarded call succeeds", func() {
			v, ok := errreg.Guard(ctx, reg, "", func(context.Context) (int, error) { return 7, nil })
			So(v, ShouldEqual, 7)
			So(ok, ShouldBeTrue)
			So(reg.Len(), ShouldEqual, 0)
		})

		Convey("When a guarded call fails", func() {
			v, ok := errreg.Guard(ctx, reg, "", func(context.Context) (string, error) { return "partial", errors.New("nope") })

			Convey("Then the zero value is returned and a system error recorded", func() {
				So(v, ShouldEqual, "")
				So(ok, ShouldBeFalse)
				rec := reg.Errors(errreg.Filter{})[0]
				So(rec.Message, ShouldEqual, errreg.DefaultGuardMessage)
				So(rec.Severity, ShouldEqual, errreg.SeverityHigh)
				So(rec.Details["error"], ShouldEqual, "nope")
			})
		})

		Convey("When a guarded call panics", func() {
			_, ok := errreg.Guard(ctx, reg, "load failed", func(context.Context) (int, error) { panic("kaput") })
			So(ok, ShouldBeFalse)
			So(reg.Errors(errreg.Filter{})[0].Message, ShouldEqual, "load failed")
		})

		Convey("When a goroutine panics under Recover", func() {
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer reg.Recover(ctx, "worker")
				panic("lost")
			}()
			wg.Wait()

			Convey("Then the panic is recorded as a high system error", func() {
				rec := reg.Errors(errreg.Filter{})[0]
				So(rec.Category, ShouldEqual, errreg.CategorySystem)
				So(rec.Severity, ShouldEqual, errreg.SeverityHigh)
				So(rec.Message, ShouldContainSubstring, "worker")
				So(rec.Message, ShouldContainSubstring, "lost")
			})
		})
	})
}
