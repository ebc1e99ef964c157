package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/mu3/internal/adapters/http/api"
	service "github.com/okian/mu3/internal/app"
	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/internal/probe"
	"github.com/okian/mu3/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

const uaFirefox = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

type echoCapability struct{}

func (echoCapability) Chat(_ context.Context, req gateway.ChatRequest) (gateway.Response, error) {
	return gateway.TextResponse("echo: " + req.Prompt), nil
}

func (echoCapability) ChatStream(_ context.Context, req gateway.ChatRequest) (<-chan gateway.Chunk, error) {
	ch := make(chan gateway.Chunk, 2)
	ch <- gateway.Chunk{Text: "echo: "}
	ch <- gateway.Chunk{Text: req.Prompt}
	close(ch)
	return ch, nil
}

func (echoCapability) Image(_ context.Context, req gateway.ImageRequest) (gateway.Image, error) {
	return gateway.Image{URL: "https://images.example/1.png", Alt: req.Prompt, Width: 1024, Height: 1024}, nil
}

// panickyDeps breaks the probe so /system exercises the recover middleware.
type panickyDeps struct {
	*service.Service
}

func (panickyDeps) Prober() *probe.Prober { panic("probe exploded") }

// newService starts a service over an echoing capability. The returned
// func stops it.
func newService() (*service.Service, func()) {
	origin := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	g := gateway.New(gateway.WithReadinessTimeout(time.Second), gateway.WithStreamDelay(0))
	g.Attach(echoCapability{})
	g.Start(context.Background())
	svc := service.New(
		service.WithGateway(g),
		service.WithWorkerCount(1),
		service.WithArenaOptions(arena.WithRevealDelay(0)),
		service.WithProber(probe.New(probe.WithOrigins(origin.URL), probe.WithReadiness(g))),
	)
	_ = svc.Start(context.Background())
	return svc, func() {
		svc.Stop()
		origin.Close()
	}
}

type client struct {
	h       http.Handler
	session string
}

func (c client) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.session != "" {
		req.Header.Set(api.SessionHeader, c.session)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](w *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	return v
}

type errorBody struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Errors   []string `json:"errors"`
	ErrorID  string   `json:"errorId"`
	Actions  []string `json:"actions"`
	Stack    string   `json:"stack"`
	Warnings []string `json:"warnings"`
}

type battleBody struct {
	Phase  arena.Phase        `json:"phase"`
	Result arena.BattleResult `json:"result"`
}

func TestRouting(t *testing.T) {
	Convey("Given the API router", t, func() {
		svc, stop := newService()
		defer stop()
		c := client{h: api.NewServer(svc).Router()}

		Convey("Then the home view answers JSON on request", func() {
			w := c.do(http.MethodGet, "/", nil, "Accept", "application/json")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"name":"Mu3"`)
		})

		Convey("Then unknown paths get a JSON 404", func() {
			w := c.do(http.MethodGet, "/nowhere", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeBody[errorBody](w).Code, ShouldEqual, "not_found")
		})

		Convey("Then wrong methods get a JSON 405", func() {
			w := c.do(http.MethodPatch, "/battle", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(decodeBody[errorBody](w).Code, ShouldEqual, "method_not_allowed")
		})

		Convey("Then every response carries a request id", func() {
			So(c.do(http.MethodGet, "/readyz", nil).Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			w := c.do(http.MethodGet, "/readyz", nil, "X-Request-ID", "req-1")
			So(w.Header().Get("X-Request-ID"), ShouldEqual, "req-1")
		})

		Convey("Then readiness reflects the gateway", func() {
			w := c.do(http.MethodGet, "/readyz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ready":true`)
		})

		Convey("Then metrics are served", func() {
			c.do(http.MethodGet, "/models", nil)
			w := c.do(http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "mu3_")
		})

		Convey("Then the scrape route is gone when metrics are disabled", func() {
			quiet := client{h: api.NewServer(svc, api.WithMetrics(false)).Router()}
			So(quiet.do(http.MethodGet, "/healthz", nil).Code, ShouldEqual, http.StatusNotFound)
			So(quiet.do(http.MethodGet, "/readyz", nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the docs and dashboard are mounted", func() {
			So(c.do(http.MethodGet, "/api-docs", nil).Code, ShouldEqual, http.StatusOK)
			So(c.do(http.MethodGet, "/openapi.yaml", nil).Code, ShouldEqual, http.StatusOK)
			So(c.do(http.MethodGet, "/dashboard", nil).Body.String(), ShouldContainSubstring, "/errors/stats")
		})
	})
}

func TestModelsAndValidation(t *testing.T) {
	Convey("Given the API router", t, func() {
		svc, stop := newService()
		defer stop()
		c := client{h: api.NewServer(svc).Router()}

		Convey("When models are listed", func() {
			all := decodeBody[[]map[string]any](c.do(http.MethodGet, "/models", nil))
			So(len(all), ShouldEqual, svc.Catalog().Len())

			anthropic := decodeBody[[]map[string]any](c.do(http.MethodGet, "/models?provider=Anthropic", nil))
			So(anthropic, ShouldNotBeEmpty)
			for _, m := range anthropic {
				So(m["provider"], ShouldEqual, "Anthropic")
			}

			So(c.do(http.MethodGet, "/models?type=audio", nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When one model is fetched", func() {
			So(c.do(http.MethodGet, "/models/gpt-5", nil).Code, ShouldEqual, http.StatusOK)
			So(c.do(http.MethodGet, "/models/nope", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When inputs are validated", func() {
			w := c.do(http.MethodPost, "/validate", map[string]string{"ruleSet": "prompt", "input": "ab"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"valid":false`)

			So(c.do(http.MethodPost, "/validate", map[string]string{"ruleSet": "poem", "input": "x"}).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodPost, "/validate", "{not json").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestBattleEndpoints(t *testing.T) {
	Convey("Given a session", t, func() {
		svc, stop := newService()
		defer stop()
		c := client{h: api.NewServer(svc).Router(), session: "battle-session"}

		Convey("When a battle is started", func() {
			w := c.do(http.MethodPost, "/battle", map[string]string{"prompt": "ما هي عاصمة فرنسا؟"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get(api.SessionHeader), ShouldEqual, "battle-session")
			b := decodeBody[battleBody](w)

			Convey("Then the models are anonymous", func() {
				So(b.Phase, ShouldEqual, arena.PhaseResolved)
				So(b.Result.ModelA, ShouldEqual, arena.LabelA)
				So(b.Result.ModelB, ShouldEqual, arena.LabelB)
				So(b.Result.ResponseA, ShouldStartWith, "echo: ")
			})

			Convey("Then a vote reveals them once", func() {
				w := c.do(http.MethodPost, "/battle/vote", map[string]string{"winner": "a"})
				So(w.Code, ShouldEqual, http.StatusOK)
				voted := decodeBody[battleBody](w)
				So(voted.Result.Revealed, ShouldBeTrue)
				So(voted.Result.ModelA, ShouldNotEqual, arena.LabelA)

				So(c.do(http.MethodPost, "/battle/vote", map[string]string{"winner": "b"}).Code, ShouldEqual, http.StatusConflict)

				Convey("And the result reaches the battle history", func() {
					deadline := time.Now().Add(2 * time.Second)
					var items []json.RawMessage
					for time.Now().Before(deadline) {
						items = decodeBody[[]json.RawMessage](c.do(http.MethodGet, "/history/battle", nil))
						if len(items) > 0 {
							break
						}
						time.Sleep(5 * time.Millisecond)
					}
					So(items, ShouldHaveLength, 1)
				})
			})

			Convey("Then an unknown outcome is rejected", func() {
				So(c.do(http.MethodPost, "/battle/vote", map[string]string{"winner": "draw"}).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then reset empties it", func() {
				So(c.do(http.MethodPost, "/battle/reset", nil).Code, ShouldEqual, http.StatusNoContent)
				got := decodeBody[battleBody](c.do(http.MethodGet, "/battle", nil))
				So(got.Phase, ShouldEqual, arena.PhaseIdle)
				So(c.do(http.MethodPost, "/battle/vote", map[string]string{"winner": "a"}).Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When the prompt is too short", func() {
			w := c.do(http.MethodPost, "/battle", map[string]string{"prompt": "a"})

			Convey("Then the rule messages come back and the failure is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				body := decodeBody[errorBody](w)
				So(body.Code, ShouldEqual, "validation_failed")
				So(body.Errors, ShouldNotBeEmpty)
				recs := decodeBody[[]map[string]any](c.do(http.MethodGet, "/errors?category=validation", nil))
				So(recs, ShouldHaveLength, 1)
			})
		})

		Convey("When the history kind is unknown", func() {
			So(c.do(http.MethodGet, "/history/video", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestChatEndpoints(t *testing.T) {
	Convey("Given a session", t, func() {
		svc, stop := newService()
		defer stop()
		c := client{h: api.NewServer(svc).Router(), session: "chat-session"}

		Convey("When a message is sent below the stream threshold", func() {
			w := c.do(http.MethodPost, "/chat", map[string]any{"message": "مرحبا", "model": "gpt-5", "temperature": 0.2})
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then the answer and history come back", func() {
				body := decodeBody[struct {
					Message  arena.Message   `json:"message"`
					Messages []arena.Message `json:"messages"`
				}](w)
				So(body.Message.Content, ShouldEqual, "echo: مرحبا")
				So(body.Messages, ShouldHaveLength, 2)
				So(decodeBody[[]arena.Message](c.do(http.MethodGet, "/chat", nil)), ShouldHaveLength, 2)
			})

			Convey("Then clearing empties the history", func() {
				So(c.do(http.MethodDelete, "/chat", nil).Code, ShouldEqual, http.StatusNoContent)
				So(decodeBody[[]arena.Message](c.do(http.MethodGet, "/chat", nil)), ShouldBeEmpty)
			})
		})

		Convey("When the model is unknown", func() {
			w := c.do(http.MethodPost, "/chat", map[string]any{"message": "hello", "model": "gpt-99"})
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeBody[errorBody](w).Code, ShouldEqual, "model_not_found")
		})

		Convey("When no model is given", func() {
			w := c.do(http.MethodPost, "/chat", map[string]any{"message": "hello", "temperature": 0})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody[struct {
				Message arena.Message `json:"message"`
			}](w).Message.Model, ShouldEqual, "GPT-5")
		})

		Convey("When a message is streamed", func() {
			w := c.do(http.MethodPost, "/chat/stream", map[string]any{"message": "hello", "model": "gpt-5", "temperature": 0.9})

			Convey("Then updates and a final event arrive", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/event-stream")
				body := w.Body.String()
				So(body, ShouldContainSubstring, "event: update")
				So(body, ShouldContainSubstring, "event: done")
				So(strings.Index(body, "event: update"), ShouldBeLessThan, strings.Index(body, "event: done"))
				So(body, ShouldContainSubstring, "echo: hello")
			})
		})

		Convey("When a streamed message is rejected up front", func() {
			w := c.do(http.MethodPost, "/chat/stream", map[string]any{"message": "", "model": "gpt-5", "temperature": 0.9})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
		})
	})
}

func TestImageVisionAndSystem(t *testing.T) {
	Convey("Given a session", t, func() {
		svc, stop := newService()
		defer stop()
		c := client{h: api.NewServer(svc).Router(), session: "img"}

		Convey("When an image is generated", func() {
			w := c.do(http.MethodPost, "/images", map[string]string{"prompt": "قطة حمراء تجلس على نافذة"})
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then it is current and in the history", func() {
				got := decodeBody[struct {
					Current *arena.GeneratedImage  `json:"current"`
					History []arena.GeneratedImage `json:"history"`
				}](c.do(http.MethodGet, "/images", nil))
				So(got.Current, ShouldNotBeNil)
				So(got.History, ShouldHaveLength, 1)
				So(c.do(http.MethodDelete, "/images", nil).Code, ShouldEqual, http.StatusNoContent)
			})
		})

		Convey("When vision gets no image", func() {
			w := c.do(http.MethodPost, "/vision", map[string]string{"prompt": "ماذا ترى؟"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody[errorBody](w).Code, ShouldEqual, "invalid_image_url")
		})

		Convey("When vision gets an image", func() {
			w := c.do(http.MethodPost, "/vision", map[string]string{"imageUrl": "https://images.example/cat.png"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "echo: ")
		})

		Convey("When a function call is requested with tools", func() {
			body := map[string]any{
				"prompt": "<b>ما حالة الطقس؟</b>",
				"tools":  []map[string]any{{"name": "weather", "parameters": map[string]any{"type": "object"}}},
			}
			w := c.do(http.MethodPost, "/function", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decodeBody[gateway.Result](w)
			So(res.Text, ShouldEqual, "echo: ما حالة الطقس؟")
			So(res.Fallback, ShouldBeFalse)
		})

		Convey("When a function call carries only markup", func() {
			w := c.do(http.MethodPost, "/function", map[string]any{"prompt": "<b></b>"})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeBody[errorBody](w).Code, ShouldEqual, "validation_failed")
		})

		Convey("When a function call names an unknown model or an unnamed tool", func() {
			w := c.do(http.MethodPost, "/function", map[string]any{"prompt": "مرحبا", "model": "gpt-99"})
			So(w.Code, ShouldEqual, http.StatusNotFound)
			w = c.do(http.MethodPost, "/function", map[string]any{"prompt": "مرحبا", "tools": []map[string]any{{"name": " "}}})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the system is probed from a small screen", func() {
			w := c.do(http.MethodGet, "/system?width=390&cookies=false", nil, "User-Agent", uaFirefox, "Accept-Language", "ar-SA,ar;q=0.9")
			So(w.Code, ShouldEqual, http.StatusOK)
			report := decodeBody[probe.Report](w)
			So(report.Browser.Name, ShouldEqual, "Firefox")
			So(report.Device.Language, ShouldEqual, "ar-SA")
			So(report.Cookies, ShouldBeFalse)
			So(report.CapabilityReady, ShouldBeTrue)
		})
	})
}

func TestPreferencesAndViews(t *testing.T) {
	Convey("Given the API router", t, func() {
		svc, stop := newService()
		defer stop()
		c := client{h: api.NewServer(svc).Router()}

		Convey("Then preferences start from defaults and can be updated", func() {
			prefs := decodeBody[map[string]any](c.do(http.MethodGet, "/preferences", nil))
			So(prefs["language"], ShouldEqual, "ar")

			w := c.do(http.MethodPut, "/preferences", map[string]any{"temperature": 1.2})
			So(w.Code, ShouldEqual, http.StatusOK)
			prefs = decodeBody[map[string]any](c.do(http.MethodGet, "/preferences", nil))
			So(prefs["temperature"], ShouldEqual, 1.2)
			So(prefs["theme"], ShouldEqual, "dark")

			So(c.do(http.MethodPut, "/preferences", map[string]any{"theme": "neon"}).Code, ShouldEqual, http.StatusBadRequest)
			w = c.do(http.MethodPut, "/preferences", map[string]any{"defaultModel": "gpt-99"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody[errorBody](w).Message, ShouldContainSubstring, "defaultModel is not in the catalog")
		})

		Convey("Then the leaderboard filters by category and limit", func() {
			body := decodeBody[struct {
				Rankings []api.Ranking `json:"rankings"`
			}](c.do(http.MethodGet, "/leaderboard?category=reasoning", nil))
			So(body.Rankings, ShouldHaveLength, 2)

			body = decodeBody[struct {
				Rankings []api.Ranking `json:"rankings"`
			}](c.do(http.MethodGet, "/leaderboard?limit=3", nil))
			So(body.Rankings, ShouldHaveLength, 3)
			So(body.Rankings[0].Name, ShouldEqual, "GPT-5")

			So(c.do(http.MethodGet, "/leaderboard?range=year", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodGet, "/leaderboard?limit=0", nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then stats combine the published figures with the service", func() {
			body := decodeBody[map[string]any](c.do(http.MethodGet, "/stats?range=week", nil))
			So(body["range"], ShouldEqual, "week")
			So(body["sections"], ShouldHaveLength, 3)
			So(body["service"].(map[string]any)["started"], ShouldEqual, true)
			So(c.do(http.MethodGet, "/stats?range=year", nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then errors can be listed, counted and cleared", func() {
			svc.Registry().Network(context.Background(), "timeout", nil)
			So(decodeBody[[]map[string]any](c.do(http.MethodGet, "/errors", nil)), ShouldHaveLength, 1)
			So(decodeBody[map[string]int](c.do(http.MethodGet, "/errors/stats", nil))["NETWORK_MEDIUM"], ShouldEqual, 1)
			So(c.do(http.MethodDelete, "/errors", nil).Code, ShouldEqual, http.StatusNoContent)
			So(decodeBody[[]map[string]any](c.do(http.MethodGet, "/errors", nil)), ShouldBeEmpty)
		})

		Convey("Then a session can be ended once", func() {
			c.session = "short-lived"
			c.do(http.MethodGet, "/battle", nil)
			So(c.do(http.MethodDelete, "/session", nil).Code, ShouldEqual, http.StatusNoContent)
			So(c.do(http.MethodDelete, "/session", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRecoverMiddleware(t *testing.T) {
	Convey("Given a handler that panics", t, func() {
		svc, stop := newService()
		defer stop()

		Convey("When debug is off", func() {
			c := client{h: api.NewServer(panickyDeps{svc}).Router()}
			w := c.do(http.MethodGet, "/system", nil)

			Convey("Then a recoverable failure is returned and recorded as critical", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeBody[errorBody](w)
				So(body.Actions, ShouldResemble, []string{"retry", "reload", "home"})
				So(body.ErrorID, ShouldStartWith, "err_")
				So(body.Stack, ShouldBeEmpty)

				recs := decodeBody[[]map[string]any](c.do(http.MethodGet, "/errors?severity=critical", nil))
				So(recs, ShouldHaveLength, 1)
				So(recs[0]["message"], ShouldEqual, "probe exploded")
			})
		})

		Convey("When debug is on", func() {
			c := client{h: api.NewServer(panickyDeps{svc}, api.WithDebug(true)).Router()}
			body := decodeBody[errorBody](c.do(http.MethodGet, "/system", nil))
			So(body.Stack, ShouldContainSubstring, "goroutine")
		})
	})
}
