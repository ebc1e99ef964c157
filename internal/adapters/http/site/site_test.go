package site_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/okian/mu3/internal/adapters/http/site"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given the home view on a router", t, func() {
		r := chi.NewRouter()
		info := site.DefaultInfo()
		info.Version = "9.9.9"
		site.Register(r, info)

		Convey("When a browser asks for /", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			Convey("Then it gets the HTML page with the info", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "9.9.9")
				So(w.Body.String(), ShouldContainSubstring, "/api-docs")
			})
		})

		Convey("When a client asks for JSON", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Accept", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			Convey("Then it gets the info object", func() {
				var got site.Info
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Name, ShouldEqual, "Mu3")
				So(got.Version, ShouldEqual, "9.9.9")
				So(got.Features, ShouldContain, "battle")
			})
		})

		Convey("Then other paths are not handled", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/some-asset", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a nil router", t, func() {
		So(func() { site.Register(nil, site.DefaultInfo()) }, ShouldPanic)
	})
}
