package loadtest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/mu3/internal/adapters/http/api"
	service "github.com/okian/mu3/internal/app"
	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/internal/loadtest"
	"github.com/okian/mu3/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type echoCapability struct{}

func (echoCapability) Chat(_ context.Context, req gateway.ChatRequest) (gateway.Response, error) {
	return gateway.TextResponse("echo: " + req.Prompt), nil
}

func (echoCapability) ChatStream(context.Context, gateway.ChatRequest) (<-chan gateway.Chunk, error) {
	return nil, gateway.ErrUnsupported
}

func (echoCapability) Image(context.Context, gateway.ImageRequest) (gateway.Image, error) {
	return gateway.Image{}, gateway.ErrUnsupported
}

func newArena(attach bool) (*httptest.Server, func()) {
	g := gateway.New(gateway.WithReadinessTimeout(50 * time.Millisecond))
	if attach {
		g.Attach(echoCapability{})
	}
	g.Start(context.Background())
	svc := service.New(
		service.WithGateway(g),
		service.WithWorkerCount(2),
		service.WithArenaOptions(arena.WithRevealDelay(0)),
	)
	_ = svc.Start(context.Background())
	srv := httptest.NewServer(api.NewServer(svc).Router())
	return srv, func() {
		srv.Close()
		svc.Stop()
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running arena with a real capability", t, func() {
		srv, stop := newArena(true)
		defer stop()

		Convey("When a small run is driven against it", func() {
			out := filepath.Join(t.TempDir(), "runs", "outcomes.json")
			stats, err := loadtest.Run(context.Background(), loadtest.Config{
				BaseURL:    srv.URL,
				Sessions:   8,
				Workers:    3,
				Settle:     2 * time.Second,
				OutputFile: out,
			})

			Convey("Then every session completes and is recorded", func() {
				So(err, ShouldBeNil)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.BattlesVoted, ShouldEqual, 8)
				So(stats.ChatsSent, ShouldEqual, 8)
				So(stats.HistoryBattles, ShouldBeGreaterThanOrEqualTo, 8)
				So(stats.DemoAnswers, ShouldEqual, 0)
			})

			Convey("Then outcomes are written", func() {
				data, readErr := os.ReadFile(out)
				So(readErr, ShouldBeNil)
				var outcomes []loadtest.Outcome
				So(json.Unmarshal(data, &outcomes), ShouldBeNil)
				So(outcomes, ShouldHaveLength, 8)
				So(outcomes[0].OK, ShouldBeTrue)
				So(outcomes[0].ModelA, ShouldNotEqual, arena.LabelA)
			})
		})
	})

	Convey("Given an arena without a capability", t, func() {
		srv, stop := newArena(false)
		defer stop()

		stats, err := loadtest.Run(context.Background(), loadtest.Config{BaseURL: srv.URL, Sessions: 3, Workers: 1, Settle: 2 * time.Second})
		So(err, ShouldBeNil)
		So(stats.DemoAnswers, ShouldEqual, 3)
	})

	Convey("Given nothing is listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := loadtest.Run(context.Background(), loadtest.Config{BaseURL: url, Sessions: 1, Timeout: time.Second})
		So(err, ShouldNotBeNil)
	})
}
