package loadtest

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

var prompts = []string{
	"ما هي عاصمة فرنسا؟",
	"اشرح نظرية النسبية بلغة بسيطة",
	"اكتب قصيدة قصيرة عن البحر",
	"ما الفرق بين الذكاء الاصطناعي وتعلم الآلة؟",
	"اقترح خطة لتعلم البرمجة في ثلاثة أشهر",
	"لخص تاريخ الحضارة الأندلسية في فقرة",
	"How does a hash map handle collisions?",
	"Write a haiku about autumn rain",
}

var messages = []string{
	"مرحبا، كيف حالك؟",
	"ما هو أفضل كتاب قرأته؟",
	"ساعدني في كتابة رسالة شكر",
	"Explain recursion with an example",
}

var votes = []string{"a", "b", "tie", "both_bad"}

// generatePlans scripts n sessions with unique ids.
func generatePlans(n int) []Plan {
	plans := make([]Plan, n)
	for i := range plans {
		plans[i] = Plan{
			Session: "load-" + uuid.NewString(),
			Prompt:  prompts[rand.IntN(len(prompts))],
			Vote:    votes[rand.IntN(len(votes))],
			Message: messages[rand.IntN(len(messages))],
		}
	}
	return plans
}
