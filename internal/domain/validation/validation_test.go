package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/mu3/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPromptRules(t *testing.T) {
	Convey("Given an Arabic checker", t, func() {
		c := validation.NewChecker(validation.LangArabic)

		Convey("When the prompt is blank", func() {
			res := c.Prompt("   ")

			Convey("Then only the required error is reported", func() {
				So(res.Valid, ShouldBeFalse)
				So(res.Errors, ShouldResemble, []string{"يرجى كتابة سؤال أو مطالبة"})
				So(res.Warnings, ShouldBeEmpty)
			})
		})

		Convey("When the prompt is two characters", func() {
			res := c.Prompt("hi")

			Convey("Then it is too short and carries the brief warning", func() {
				So(res.Valid, ShouldBeFalse)
				So(res.Errors, ShouldContain, "السؤال قصير جداً (الحد الأدنى 3 أحرف)")
				So(res.Warnings, ShouldContain, "السؤال قصير - قد تحصل على إجابة أفضل بسؤال أكثر تفصيلاً")
			})
		})

		Convey("When the prompt is a normal English question", func() {
			res := c.Prompt("What is the capital of France?")

			Convey("Then it is valid without warnings", func() {
				So(res.Valid, ShouldBeTrue)
				So(res.Errors, ShouldBeEmpty)
				So(res.Warnings, ShouldBeEmpty)
			})
		})

		Convey("When the prompt is Arabic", func() {
			res := c.Prompt("ما هي عاصمة فرنسا؟")
			So(res.Valid, ShouldBeTrue)
			So(res.Warnings, ShouldBeEmpty)
		})

		Convey("When the prompt holds a script block", func() {
			res := c.Prompt("<script>alert(1)</script> tell me")

			Convey("Then both markup and script errors are reported", func() {
				So(res.Valid, ShouldBeFalse)
				So(res.Errors, ShouldContain, "لا يُسمح بكود HTML في السؤال")
				So(res.Errors, ShouldContain, "لا يُسمح بكود JavaScript في السؤال")
			})
		})

		Convey("When the prompt is long", func() {
			res := c.Prompt(strings.Repeat("a", 1500))
			So(res.Valid, ShouldBeTrue)
			So(res.Warnings, ShouldContain, "السؤال طويل - قد يستغرق وقتاً أطول للمعالجة")

			res = c.Prompt(strings.Repeat("a", 2001))
			So(res.Valid, ShouldBeFalse)
			So(res.Errors, ShouldContain, "السؤال طويل جداً (الحد الأقصى 2000 حرف)")
		})

		Convey("When the prompt has no letters", func() {
			res := c.Prompt("12345 67890 ???")
			So(res.Valid, ShouldBeTrue)
			So(res.Warnings, ShouldContain, "لم يتم اكتشاف نص عربي أو إنجليزي - تأكد من صحة السؤال")
		})

		Convey("When lengths are measured", func() {
			Convey("Then runes are counted, not bytes", func() {
				res := c.Prompt("مرحبا")
				So(res.Errors, ShouldBeEmpty)
				So(res.Warnings, ShouldContain, "السؤال قصير - قد تحصل على إجابة أفضل بسؤال أكثر تفصيلاً")
			})
		})
	})
}

func TestImageDescriptionRules(t *testing.T) {
	Convey("Given an English checker", t, func() {
		c := validation.NewChecker(validation.LangEnglish)

		Convey("When the description mentions violence", func() {
			res := c.ImageDescription("a painting full of VIOLENCE in red")
			So(res.Valid, ShouldBeFalse)
			So(res.Errors, ShouldResemble, []string{"The image description contains inappropriate content"})
		})

		Convey("When the description is short and plain", func() {
			res := c.ImageDescription("a cat")

			Convey("Then it is valid with three advisory warnings", func() {
				So(res.Valid, ShouldBeTrue)
				So(len(res.Warnings), ShouldEqual, 3)
			})
		})

		Convey("When the description names a color and a style", func() {
			res := c.ImageDescription("an oil painting of a blue sailing boat at dawn")
			So(res.Valid, ShouldBeTrue)
			So(res.Warnings, ShouldBeEmpty)
		})

		Convey("When the description is four characters", func() {
			res := c.ImageDescription("cats")
			So(res.Errors, ShouldContain, "The image description is too short (minimum 5 characters)")
		})
	})
}

func TestChatMessageRules(t *testing.T) {
	Convey("Given an Arabic checker", t, func() {
		c := validation.NewChecker("ar")

		Convey("When a message contains markup", func() {
			res := c.ChatMessage("hello <b>world</b>")

			Convey("Then markup is only a warning", func() {
				So(res.Valid, ShouldBeTrue)
				So(res.Warnings, ShouldResemble, []string{"تم إزالة كود HTML من الرسالة"})
			})
		})

		Convey("When a message contains a script", func() {
			res := c.ChatMessage("<SCRIPT type=x>\nalert(1)\n</script>")
			So(res.Valid, ShouldBeFalse)
			So(res.Errors, ShouldContain, "لا يُسمح بكود JavaScript في الرسالة")
		})

		Convey("When a single character is sent", func() {
			So(c.ChatMessage("?").Valid, ShouldBeTrue)
		})
	})
}

func TestModelSelectionRules(t *testing.T) {
	Convey("Given a checker", t, func() {
		c := validation.NewChecker("ar")

		So(c.ModelSelection("").Errors, ShouldResemble, []string{"يرجى اختيار نموذج لغوي"})
		So(c.ModelSelection("gpt-4.1-mini").Valid, ShouldBeTrue)
		So(c.ModelSelection("google/gemini-2.5-flash").Valid, ShouldBeTrue)
		So(c.ModelSelection("gpt 5; drop").Errors, ShouldResemble, []string{"معرف النموذج غير صحيح"})
	})
}

func TestValidateDispatch(t *testing.T) {
	Convey("Given a checker for an unknown language", t, func() {
		c := validation.NewChecker("fr")

		Convey("Then it falls back to Arabic", func() {
			So(c.Language(), ShouldEqual, validation.LangArabic)
		})

		Convey("Then unknown rule sets are rejected", func() {
			_, err := c.Validate("address", "x")
			So(errors.Is(err, validation.ErrUnknownRuleSet), ShouldBeTrue)
		})

		Convey("Then named rule sets dispatch", func() {
			res, err := c.Validate(validation.RuleSetChatMessage, "")
			So(err, ShouldBeNil)
			So(res.Valid, ShouldBeFalse)
		})
	})
}

func TestSanitize(t *testing.T) {
	Convey("Given inputs with markup", t, func() {
		cases := map[string]string{
			"":                                    "",
			"  hello   world  ":                   "hello world",
			"<b>bold</b> text":                    "bold text",
			"<script>alert('x')</script>question": "question",
			"a {b} [c] \\d":                       "a b c d",
			"line\n\n\tbreak":                     "line break",
			"x < y > z":                           "x z",
			"fish & chips \"x\"":                  "fish & chips \"x\"",
		}
		for in, want := range cases {
			So(validation.Sanitize(in), ShouldEqual, want)
		}

		Convey("Then sanitizing twice changes nothing", func() {
			for in := range cases {
				once := validation.Sanitize(in)
				So(validation.Sanitize(once), ShouldEqual, once)
			}
			tricky := "<scr<script>x</script>ipt>alert(1)</script> {ok}"
			once := validation.Sanitize(tricky)
			So(validation.Sanitize(once), ShouldEqual, once)
			So(once, ShouldNotContainSubstring, "<")
		})
	})

	Convey("Given StripMarkup", t, func() {
		So(validation.HasMarkup("a <b>c</b>"), ShouldBeTrue)
		So(validation.HasMarkup("x {y}"), ShouldBeFalse)
		So(validation.StripMarkup("func() {\n\t<i>return</i> [1]\n}"), ShouldEqual, "func() {\n\treturn [1]\n}")
	})

	Convey("Given ValidateAndSanitizePrompt", t, func() {
		c := validation.NewChecker("ar")
		clean, res := c.ValidateAndSanitizePrompt("  <i>Explain</i> recursion  ")
		So(clean, ShouldEqual, "Explain recursion")
		So(res.Valid, ShouldBeTrue)

		clean, res = c.ValidateAndSanitizePrompt("<p></p>")
		So(clean, ShouldEqual, "")
		So(res.Valid, ShouldBeFalse)
	})
}

func TestGenericValidator(t *testing.T) {
	Convey("Given a validator with a failing, a passing and a panicking rule", t, func() {
		v := validation.NewChecker(validation.LangArabic).NewValidator().
			AddRule(validation.Rule{Name: "even", Message: "must be even", Check: func(v any) bool { return v.(int)%2 == 0 }}).
			AddRule(validation.Rule{Name: "positive", Message: "must be positive", Check: func(v any) bool { return v.(int) > 0 }}).
			AddRule(validation.Rule{Name: "boom", Message: "never", Check: func(any) bool { panic("boom") }})

		res := v.Validate(3)

		Convey("Then failures are errors and panics are warnings", func() {
			So(res.Valid, ShouldBeFalse)
			So(res.Errors, ShouldResemble, []string{"must be even"})
			So(res.Warnings, ShouldResemble, []string{"خطأ في قاعدة التحقق: boom"})
		})

		Convey("Then an English validator localizes the warning", func() {
			ev := validation.NewChecker("en").NewValidator().
				AddRule(validation.Rule{Name: "boom", Check: func(any) bool { panic("x") }})
			r := ev.Validate(nil)
			So(r.Valid, ShouldBeTrue)
			So(r.Warnings, ShouldResemble, []string{"Validation rule failed: boom"})
		})
	})
}
