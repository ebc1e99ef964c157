package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "mu3")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithRefreshInterval(5*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors carry the custom naming and labels", func() {
				manager.battlesStarted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var labels []string
				for _, f := range families {
					if f.GetName() != "test_arena_battles_started_total" {
						continue
					}
					for _, l := range f.GetMetric()[0].GetLabel() {
						labels = append(labels, l.GetName()+"="+l.GetValue())
					}
				}
				So(labels, ShouldResemble, []string{"env=test"})
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithRefreshInterval(0), WithConstLabels(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "mu3")
				So(manager.subsystem, ShouldEqual, "arena")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
				So(manager.constLabels, ShouldBeNil)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the package collectors are reconfigured", t, func() {
		Configure(WithNamespace("cfg"), WithRefreshInterval(time.Second), WithConstLabels(map[string]string{"site": "a"}))
		defer Configure()

		RecordBattleStarted()

		Convey("Then recordings land on the new registry under the new name", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(names, ShouldContain, "cfg_arena_battles_started_total")
			So(RefreshInterval(), ShouldEqual, time.Second)
		})

		Convey("Then configuring twice does not collide on registration", func() {
			So(func() { Configure(WithNamespace("cfg")) }, ShouldNotPanic)
		})
	})

	Convey("Given the default configuration", t, func() {
		Configure()

		Convey("Then the default refresh interval and namespace apply", func() {
			RecordBattleStarted()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(families[0].GetName(), ShouldStartWith, "mu3_")
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording gateway calls", func() {
			before := testutil.ToFloat64(globalManager.gatewayCalls.WithLabelValues("generate_text", "fallback", "ok"))
			RecordGatewayCall("generate_text", "fallback", "ok", 12)

			Convey("Then the counter increases by one", func() {
				after := testutil.ToFloat64(globalManager.gatewayCalls.WithLabelValues("generate_text", "fallback", "ok"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording arena events", func() {
			So(func() {
				RecordBattleStarted()
				RecordBattleVote("a")
				RecordChatMessage("user")
				RecordChatMode("stream")
				RecordImageGenerated("placeholder")
				RecordStaleDiscarded("battle")
				UpdateActiveSessions(3)
				RecordValidationFailure("prompt")
			}, ShouldNotPanic)
		})

		Convey("When updating the gateway state", func() {
			UpdateGatewayState(3, "unavailable")

			Convey("Then the gauge reflects it", func() {
				So(testutil.ToFloat64(globalManager.gatewayState), ShouldEqual, 3)
			})
		})

		Convey("When recording the remaining families", func() {
			So(func() {
				RecordHTTPRequest("/battle", "POST", "200")
				RecordHTTPRequestDuration("/battle", "POST", "200", 3)
				RecordHTTPError("/battle", "POST", "client_error")
				RecordStreamFragment("real")
				RecordGatewayRetry()
				RecordErrorRecorded("network", "medium")
				UpdateErrorsRetained(10)
				RecordStorageOperation("memory", "set", 0.1, false)
				RecordStorageOperation("sqlite", "get", 0.5, true)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("full")
				UpdateWorkerCount(2)
				RecordWorkerProcessingLatency(4)
				RecordWorkerError()
				RecordJobDuplicate()
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then every family uses the service namespace", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "mu3_arena_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordChatMessage("assistant")
					RecordStreamFragment("fallback")
					UpdateQueueSize(j)
				}
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		Convey("Then nothing panics", func() {
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}
