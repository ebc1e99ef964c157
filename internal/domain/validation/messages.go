package validation

type messages struct {
	promptRequired string
	promptTooShort string
	promptTooLong  string
	promptHTML     string
	promptScript   string
	promptBrief    string
	promptVerbose  string
	promptLanguage string

	imageRequired string
	imageTooShort string
	imageTooLong  string
	imageHTML     string
	imageScript   string
	imagePolicy   string
	imageDetail   string
	imageColor    string
	imageStyle    string

	chatRequired string
	chatEmpty    string
	chatTooLong  string
	chatHTML     string
	chatScript   string

	modelRequired string
	modelInvalid  string

	ruleFailed string
}

var catalogs = map[string]*messages{
	LangArabic: {
		promptRequired: "يرجى كتابة سؤال أو مطالبة",
		promptTooShort: "السؤال قصير جداً (الحد الأدنى 3 أحرف)",
		promptTooLong:  "السؤال طويل جداً (الحد الأقصى 2000 حرف)",
		promptHTML:     "لا يُسمح بكود HTML في السؤال",
		promptScript:   "لا يُسمح بكود JavaScript في السؤال",
		promptBrief:    "السؤال قصير - قد تحصل على إجابة أفضل بسؤال أكثر تفصيلاً",
		promptVerbose:  "السؤال طويل - قد يستغرق وقتاً أطول للمعالجة",
		promptLanguage: "لم يتم اكتشاف نص عربي أو إنجليزي - تأكد من صحة السؤال",

		imageRequired: "يرجى كتابة وصف للصورة المطلوبة",
		imageTooShort: "وصف الصورة قصير جداً (الحد الأدنى 5 أحرف)",
		imageTooLong:  "وصف الصورة طويل جداً (الحد الأقصى 1000 حرف)",
		imageHTML:     "لا يُسمح بكود HTML في وصف الصورة",
		imageScript:   "لا يُسمح بكود JavaScript في وصف الصورة",
		imagePolicy:   "وصف الصورة يحتوي على محتوى غير مناسب",
		imageDetail:   "وصف أكثر تفصيلاً سيؤدي إلى صورة أفضل",
		imageColor:    "إضافة ألوان محددة قد يحسن جودة الصورة",
		imageStyle:    "تحديد نوع الفن (رسم، تصوير، إلخ) قد يحسن النتيجة",

		chatRequired: "يرجى كتابة رسالة",
		chatEmpty:    "الرسالة فارغة",
		chatTooLong:  "الرسالة طويلة جداً (الحد الأقصى 2000 حرف)",
		chatHTML:     "تم إزالة كود HTML من الرسالة",
		chatScript:   "لا يُسمح بكود JavaScript في الرسالة",

		modelRequired: "يرجى اختيار نموذج لغوي",
		modelInvalid:  "معرف النموذج غير صحيح",

		ruleFailed: "خطأ في قاعدة التحقق: ",
	},
	LangEnglish: {
		promptRequired: "Please write a question or prompt",
		promptTooShort: "The question is too short (minimum 3 characters)",
		promptTooLong:  "The question is too long (maximum 2000 characters)",
		promptHTML:     "HTML is not allowed in the question",
		promptScript:   "JavaScript is not allowed in the question",
		promptBrief:    "Short question - a more detailed question may get a better answer",
		promptVerbose:  "Long question - processing may take longer",
		promptLanguage: "No Arabic or English text detected - check your question",

		imageRequired: "Please describe the image you want",
		imageTooShort: "The image description is too short (minimum 5 characters)",
		imageTooLong:  "The image description is too long (maximum 1000 characters)",
		imageHTML:     "HTML is not allowed in the image description",
		imageScript:   "JavaScript is not allowed in the image description",
		imagePolicy:   "The image description contains inappropriate content",
		imageDetail:   "A more detailed description will produce a better image",
		imageColor:    "Mentioning specific colors may improve the image",
		imageStyle:    "Naming an art style (drawing, photo, etc.) may improve the result",

		chatRequired: "Please write a message",
		chatEmpty:    "The message is empty",
		chatTooLong:  "The message is too long (maximum 2000 characters)",
		chatHTML:     "HTML was removed from the message",
		chatScript:   "JavaScript is not allowed in the message",

		modelRequired: "Please choose a language model",
		modelInvalid:  "Invalid model identifier",

		ruleFailed: "Validation rule failed: ",
	},
}
