package catalog

var builtin = []Model{
	// OpenAI GPT-5
	{ID: "gpt-5", Name: "GPT-5", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"نص", "تحليل", "برمجة", "إبداع"}, Icon: "🚀", IsNew: true},
	{ID: "gpt-5-nano", Name: "GPT-5 Nano", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"نص", "سرعة", "كفاءة"}, Icon: "⚡", IsNew: true},
	{ID: "gpt-5-mini", Name: "GPT-5 Mini", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"نص", "سرعة", "اقتصادي"}, Icon: "🔥", IsNew: true},
	{ID: "gpt-5-chat-latest", Name: "GPT-5 Chat Latest", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"محادثة", "تفاعل", "حديث"}, Icon: "💬", IsNew: true},

	// OpenAI GPT-4
	{ID: "gpt-4.1", Name: "GPT-4.1", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"نص", "تحليل", "دقة"}, Icon: "🎓"},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"نص", "سرعة", "كفاءة"}, Icon: "⚡"},
	{ID: "gpt-4.1-nano", Name: "GPT-4.1 Nano", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"نص", "سرعة فائقة", "خفيف"}, Icon: "🔥"},
	{ID: "gpt-4.5-preview", Name: "GPT-4.5 Preview", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"نص", "معاينة", "تطوير"}, Icon: "🔬", IsNew: true},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "OpenAI", Category: CategoryMultimodal, Capabilities: []string{"نص", "صور", "تحليل"}, Icon: "🎯"},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "OpenAI", Category: CategoryMultimodal, Capabilities: []string{"نص", "صور", "سرعة"}, Icon: "⚡"},

	// OpenAI reasoning
	{ID: "o1", Name: "o1", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"تفكير", "منطق", "رياضيات"}, Icon: "🧠"},
	{ID: "o1-mini", Name: "o1 Mini", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"تفكير", "سرعة", "منطق"}, Icon: "🧠"},
	{ID: "o1-pro", Name: "o1 Pro", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"تفكير متقدم", "تحليل عميق"}, Icon: "🧠"},
	{ID: "o3", Name: "o3", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"تفكير", "إبداع", "حل المشاكل"}, Icon: "🧠", IsNew: true},
	{ID: "o3-mini", Name: "o3 Mini", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"تفكير", "سرعة", "كفاءة"}, Icon: "🧠", IsNew: true},
	{ID: "o4-mini", Name: "o4 Mini", Provider: "OpenAI", Category: CategoryText, Capabilities: []string{"تفكير متطور", "سرعة"}, Icon: "🧠", IsNew: true},

	// Anthropic
	{ID: "claude-sonnet-4", Name: "Claude Sonnet 4", Provider: "Anthropic", Category: CategoryText, Capabilities: []string{"نص", "تحليل", "إبداع", "أمان"}, Icon: "🎭", IsNew: true},
	{ID: "claude-opus-4", Name: "Claude Opus 4", Provider: "Anthropic", Category: CategoryText, Capabilities: []string{"تحليل عميق", "إبداع", "تفكير"}, Icon: "🎨", IsNew: true},
	{ID: "claude-3-7-sonnet", Name: "Claude 3.7 Sonnet", Provider: "Anthropic", Category: CategoryText, Capabilities: []string{"نص", "تحليل", "توازن"}, Icon: "🎭"},

	// Google
	{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: "Google", Category: CategoryMultimodal, Capabilities: []string{"نص", "صور", "سرعة", "تحليل"}, Icon: "💎", IsNew: true},
	{ID: "google/gemini-pro", Name: "Gemini Pro", Provider: "Google", Category: CategoryMultimodal, Capabilities: []string{"نص", "صور", "تحليل متقدم"}, Icon: "💎"},

	// Meta
	{ID: "meta/llama-3.3-70b", Name: "Llama 3.3 70B", Provider: "Meta", Category: CategoryText, Capabilities: []string{"نص", "مفتوح المصدر", "قوي"}, Icon: "🦙", IsNew: true},
	{ID: "meta/llama-3.2-90b", Name: "Llama 3.2 90B", Provider: "Meta", Category: CategoryMultimodal, Capabilities: []string{"نص", "صور", "مفتوح المصدر"}, Icon: "🦙"},

	// Image generation
	{ID: "dall-e-3", Name: "DALL-E 3", Provider: "OpenAI", Category: CategoryImage, Capabilities: []string{"توليد صور", "إبداع بصري"}, Icon: "🎨"},
	{ID: "midjourney", Name: "Midjourney", Provider: "Midjourney", Category: CategoryImage, Capabilities: []string{"توليد صور", "فني", "إبداعي"}, Icon: "🖼️"},
	{ID: "stable-diffusion-xl", Name: "Stable Diffusion XL", Provider: "Stability AI", Category: CategoryImage, Capabilities: []string{"توليد صور", "مفتوح المصدر"}, Icon: "🎨"},
}
