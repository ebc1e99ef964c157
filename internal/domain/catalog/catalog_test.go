package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/mu3/internal/domain/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultCatalog(t *testing.T) {
	Convey("Given the built-in catalog", t, func() {
		c := catalog.Default()

		Convey("Then it holds every built-in model", func() {
			So(c.Len(), ShouldEqual, 26)
		})

		Convey("Then lookups by id work", func() {
			m, ok := c.ByID("claude-sonnet-4")
			So(ok, ShouldBeTrue)
			So(m.Name, ShouldEqual, "Claude Sonnet 4")
			So(m.Provider, ShouldEqual, "Anthropic")

			_, ok = c.ByID("nope")
			So(ok, ShouldBeFalse)
			So(c.DisplayName("nope"), ShouldEqual, "nope")
		})

		Convey("Then filters by provider and category work", func() {
			So(len(c.ByProvider("Anthropic")), ShouldEqual, 3)
			So(len(c.ByCategory(catalog.CategoryImage)), ShouldEqual, 3)
			So(len(c.ByCategory(catalog.CategoryMultimodal)), ShouldEqual, 5)
		})

		Convey("Then the battle pool lists text models before multimodal ones", func() {
			pool := c.BattlePool()
			So(len(pool), ShouldEqual, 23)
			So(pool[0].Category, ShouldEqual, catalog.CategoryText)
			So(pool[len(pool)-1].Category, ShouldEqual, catalog.CategoryMultimodal)
		})

		Convey("Then callers cannot mutate the catalog through returned slices", func() {
			all := c.All()
			all[0].Name = "changed"
			all[0].Capabilities[0] = "changed"
			m, _ := c.ByID(all[0].ID)
			So(m.Name, ShouldNotEqual, "changed")
		})
	})
}

func TestNewCatalogValidation(t *testing.T) {
	Convey("Given invalid model tables", t, func() {
		Convey("When the table is empty", func() {
			_, err := catalog.New(nil)
			So(errors.Is(err, catalog.ErrEmptyCatalog), ShouldBeTrue)
		})

		Convey("When an id has forbidden characters", func() {
			_, err := catalog.New([]catalog.Model{{ID: "bad id", Name: "x", Provider: "p", Category: catalog.CategoryText}})
			So(errors.Is(err, catalog.ErrInvalidModel), ShouldBeTrue)
		})

		Convey("When an id repeats", func() {
			m := catalog.Model{ID: "a", Name: "A", Provider: "p", Category: catalog.CategoryText}
			_, err := catalog.New([]catalog.Model{m, m})
			So(errors.Is(err, catalog.ErrDuplicateID), ShouldBeTrue)
		})

		Convey("When the category is unknown", func() {
			_, err := catalog.New([]catalog.Model{{ID: "a", Name: "A", Provider: "p", Category: "audio"}})
			So(errors.Is(err, catalog.ErrInvalidModel), ShouldBeTrue)
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML catalog file", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		So(os.WriteFile(path, []byte(`
models:
  - id: local-llama
    name: Local Llama
    provider: Meta
    type: text
    capabilities: [text]
    icon: "🦙"
    is_new: true
  - id: local-vision
    name: Local Vision
    provider: Meta
    type: multimodal
`), 0o600), ShouldBeNil)

		c, err := catalog.LoadFile(path)

		Convey("Then it replaces the built-in table", func() {
			So(err, ShouldBeNil)
			So(c.Len(), ShouldEqual, 2)
			m, ok := c.ByID("local-llama")
			So(ok, ShouldBeTrue)
			So(m.IsNew, ShouldBeTrue)
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := catalog.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}
