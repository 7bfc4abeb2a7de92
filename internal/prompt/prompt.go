// Package prompt builds the full LLM prompt for a given analysis kind.
// Grounded on original_source/gold_bot/ai_manager.py's per-kind prompt
// strings and its _get_system_message/_build_analysis_context helpers,
// ported from Python str.format templates to Go text/template since the
// teacher itself has no string-templating dependency to follow here and
// text/template is the idiomatic stdlib choice for named placeholders.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/goldnightmare/goldservice/types"
)

// systemPersona is the fixed system message embedded in every request,
// translated verbatim in spirit from _get_system_message.
const systemPersona = `أنت محلل ذهب محترف بخبرة 20+ سنة في الأسواق المالية.

خبرتك تشمل:
- تحليل اتجاهات أسعار الذهب XAU/USD
- قراءة المؤشرات الفنية والأساسية
- تقديم توصيات استراتيجية للتداول
- فهم العوامل المؤثرة على أسعار الذهب (تضخم، أسعار فائدة، جيوسياسية)

قواعد مهمة:
1. استخدم السعر المعطى كأساس للتحليل - لا تشكك فيه أبداً
2. قدم تحليلاً دقيقاً ومفصلاً
3. حدد مستويات واضحة للدخول والخروج
4. أضف إدارة المخاطر دائماً
- اكتب باللغة العربية دائماً
- لا تقدم نصائح استثمارية مباشرة، بل تحليلات تعليمية
- اذكر دائماً أن التداول محفوف بالمخاطر`

// signOff is the mandatory sign-off string every template embeds.
const signOff = "🏆 Gold Nightmare Analysis"

// educationalDisclaimer is the mandatory "not financial advice" clause.
const educationalDisclaimer = "هذا تحليل تعليمي وليس نصيحة استثمارية مباشرة."

type templateSpec struct {
	priceRequired bool
	body          *template.Template
}

var templates = map[types.AnalysisKind]templateSpec{
	types.KindQuick: {
		priceRequired: true,
		body: template.Must(template.New("quick").Parse(`قم بتحليل سريع ومفيد لسعر الذهب الحالي (100-200 كلمة). اذكر الاتجاه، توصية من سطر واحد، هدف سعري واحد، مستوى وقف، وتحذير مخاطر.

بيانات السوق:
{{.Context}}

التوقيت: {{.Timestamp}}
{{.Disclaimer}}
{{.SignOff}}`)),
	},
	types.KindDetailed: {
		priceRequired: true,
		body: template.Must(template.New("detailed").Parse(`قم بإجراء تحليل مفصل وشامل لسعر الذهب (400-600 كلمة) يتضمن: التحليل الفني، المؤشرات، خطة تداول، سيناريوهات محتملة، وإدارة المخاطر.

بيانات السوق:
{{.Context}}

التوقيت: {{.Timestamp}}
{{.Disclaimer}}
{{.SignOff}}`)),
	},
	types.KindChart: {
		priceRequired: true,
		body: template.Must(template.New("chart").Parse(`قم بتحليل فني متخصص (300-500 كلمة) يغطي النمط السعري، مستويات الدعم والمقاومة، التباعد (divergence)، وسيناريوهات صاعدة/هابطة.

بيانات السوق:
{{.Context}}

{{if .Extra}}ملاحظات إضافية:
{{.Extra}}

{{end}}التوقيت: {{.Timestamp}}
{{.Disclaimer}}
{{.SignOff}}`)),
	},
	types.KindNews: {
		priceRequired: false,
		body: template.Must(template.New("news").Parse(`قم بتحليل تأثير الأخبار والأحداث الاقتصادية على سعر الذهب (300-400 كلمة): العوامل الكلية المؤثرة، والتوقعات قصيرة ومتوسطة المدى.

{{if .Context}}بيانات السوق:
{{.Context}}

{{end}}{{if .Extra}}سياق إضافي:
{{.Extra}}

{{end}}التوقيت: {{.Timestamp}}
{{.Disclaimer}}
{{.SignOff}}`)),
	},
	types.KindForecast: {
		priceRequired: true,
		body: template.Must(template.New("forecast").Parse(`قم بإعداد توقع مدروس (400-500 كلمة) لاتجاه سعر الذهب أسبوعياً وشهرياً، مع سيناريوهات (صاعد/هابط/متذبذب) ومستويات الكسر المحتملة.

بيانات السوق:
{{.Context}}

التوقيت: {{.Timestamp}}
{{.Disclaimer}}
{{.SignOff}}`)),
	},
}

type templateData struct {
	Context    string
	Extra      string
	Timestamp  string
	Disclaimer string
	SignOff    string
}

// Composer builds prompts per kind. It owns the persona, templates, and
// boilerplate; the pipeline only supplies kind, price snapshot, and a
// free-text context string.
type Composer struct {
	now func() time.Time
}

// New builds a Composer using the given clock function for the embedded
// UTC timestamp.
func New(now func() time.Time) *Composer {
	return &Composer{now: now}
}

// System returns the fixed system persona followed by the current UTC date
// and time; it is sent with every request.
func (c *Composer) System() string {
	return fmt.Sprintf("%s\n\nالتاريخ والوقت الحالي: %s", systemPersona, c.now().UTC().Format("2006-01-02 15:04 UTC"))
}

// PriceRequired reports whether kind's template expects a price snapshot.
func PriceRequired(kind types.AnalysisKind) bool {
	return templates[kind].priceRequired
}

// BuildContext renders the market-data block embedded in most templates,
// mirroring _build_analysis_context.
func BuildContext(q *types.PriceQuote) string {
	if q == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "معلومات السوق الحالية:\n")
	fmt.Fprintf(&b, "- السعر الحالي: $%.2f\n", q.Price)
	fmt.Fprintf(&b, "- التغيير 24 ساعة: %.2f (%.2f%%)\n", q.Change, q.ChangePct)
	fmt.Fprintf(&b, "- أعلى 24 ساعة: $%.2f\n", q.High24h)
	fmt.Fprintf(&b, "- أدنى 24 ساعة: $%.2f\n", q.Low24h)
	fmt.Fprintf(&b, "- الوقت: %s\n", q.ObservedAt.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- المصدر: %s", q.Source)
	return b.String()
}

// Compose renders the full user-message prompt for kind. extra is the
// caller-supplied free-text context (user_question/additional_context).
func (c *Composer) Compose(kind types.AnalysisKind, marketContext, extra string) (string, error) {
	spec, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("prompt: unknown analysis kind %q", kind)
	}

	data := templateData{
		Context:    marketContext,
		Extra:      strings.TrimSpace(extra),
		Timestamp:  c.now().UTC().Format("2006-01-02 15:04 UTC"),
		Disclaimer: educationalDisclaimer,
		SignOff:    signOff,
	}

	var buf bytes.Buffer
	if err := spec.body.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompt: render failed: %w", err)
	}
	return buf.String(), nil
}

// Fingerprint composes the context string used for the md5 fingerprint
// key, combining the market context and free-text extra (spec §4.4 step 3).
func Fingerprint(marketContext, extra string) string {
	if extra == "" {
		return marketContext
	}
	return marketContext + "\n\n" + extra
}
