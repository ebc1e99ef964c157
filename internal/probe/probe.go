// Package probe inspects the client environment and the service's own
// dependencies and reports whether the arena can run.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/mu3/internal/adapters/storage"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/pkg/logger"
)

// Defaults.
const (
	DefaultTimeout       = 5 * time.Second
	MinViewportWidth     = 768
	storageProbeValue    = "test"
	defaultReadinessWait = 10 * time.Second
)

// DefaultOrigins are tried in order by the connectivity check.
var DefaultOrigins = []string{"https://api.openai.com", "https://api.anthropic.com", "https://www.google.com"}

// Messages.
const (
	msgBrowserUnsupported = "متصفحك (%s %s) قد لا يدعم جميع الميزات"
	msgUpdateBrowser      = "يُنصح بتحديث المتصفح أو استخدام Chrome/Firefox/Safari الحديث"
	msgOffline            = "لا يوجد اتصال بالإنترنت"
	msgCheckConnection    = "تأكد من اتصالك بالإنترنت لاستخدام خدمات الذكاء الاصطناعي"
	msgNoStorage          = "التخزين المحلي غير متاح"
	msgSettingsLost       = "قد تفقد بعض الإعدادات عند إعادة تحميل الصفحة"
	msgNoCookies          = "ملفات تعريف الارتباط معطلة"
	msgCapabilityMissing  = "خدمة الذكاء الاصطناعي غير محملة بعد"
	msgCapabilityRetry    = "سيتم تحميل خدمة الذكاء الاصطناعي تلقائياً، أو يمكنك إعادة تحميل الصفحة"
	msgLandscape          = "للحصول على أفضل تجربة، استخدم الجهاز في الوضع الأفقي"
	msgSmallScreen        = "الشاشة صغيرة - قد تحتاج للتمرير أكثر"
)

// Readiness is the part of the gateway the probe depends on.
type Readiness interface {
	State() gateway.State
	WaitReady(ctx context.Context, timeout time.Duration) bool
}

// Env is what the client tells us about itself.
type Env struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Language       string
	CookiesEnabled bool
}

// Report is the outcome of a full check.
type Report struct {
	Supported       bool      `json:"isSupported"`
	Browser         Browser   `json:"browser"`
	Device          Device    `json:"device"`
	Online          bool      `json:"online"`
	Storage         bool      `json:"localStorage"`
	Cookies         bool      `json:"cookies"`
	CapabilityReady bool      `json:"capabilityReady"`
	Issues          []string  `json:"issues"`
	Warnings        []string  `json:"warnings"`
	Recommendations []string  `json:"recommendations"`
	CheckedAt       time.Time `json:"checkedAt"`
}

// Prober runs environment checks.
type Prober struct {
	origins   []string
	client    *http.Client
	timeout   time.Duration
	store     storage.Store
	readiness Readiness
	logger    logger.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithOrigins replaces the connectivity targets.
func WithOrigins(origins ...string) Option {
	return func(p *Prober) {
		if len(origins) > 0 {
			p.origins = origins
		}
	}
}

// WithHTTPClient sets the client used for connectivity checks.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout bounds each connectivity request.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithStore sets the storage exercised by the storage check.
func WithStore(s storage.Store) Option {
	return func(p *Prober) { p.store = s }
}

// WithReadiness sets the gateway whose capability is checked.
func WithReadiness(r Readiness) Option {
	return func(p *Prober) { p.readiness = r }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		origins: DefaultOrigins,
		client:  &http.Client{},
		timeout: DefaultTimeout,
		logger:  logger.Get().Named("probe"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs every check. Supported is false only when a hard issue
// (unsupported browser or no connectivity) was found.
func (p *Prober) Run(ctx context.Context, env Env) Report {
	r := Report{
		Browser:         ParseBrowser(env.UserAgent),
		Device:          describeDevice(env),
		Issues:          []string{},
		Warnings:        []string{},
		Recommendations: []string{},
		CheckedAt:       time.Now().UTC(),
	}

	if !r.Browser.Supported {
		r.Issues = append(r.Issues, fmt.Sprintf(msgBrowserUnsupported, r.Browser.Name, r.Browser.Version))
		r.Recommendations = append(r.Recommendations, msgUpdateBrowser)
	}

	r.Online = p.Online(ctx)
	if !r.Online {
		r.Issues = append(r.Issues, msgOffline)
		r.Recommendations = append(r.Recommendations, msgCheckConnection)
	}

	r.Storage = p.StorageAvailable(ctx)
	if !r.Storage {
		r.Warnings = append(r.Warnings, msgNoStorage)
		r.Recommendations = append(r.Recommendations, msgSettingsLost)
	}

	r.Cookies = env.CookiesEnabled
	if !r.Cookies {
		r.Warnings = append(r.Warnings, msgNoCookies)
	}

	r.CapabilityReady = p.readiness != nil && p.readiness.State() == gateway.StateReady
	if !r.CapabilityReady {
		r.Warnings = append(r.Warnings, msgCapabilityMissing)
		r.Recommendations = append(r.Recommendations, msgCapabilityRetry)
	}

	if r.Device.Mobile {
		r.Recommendations = append(r.Recommendations, msgLandscape)
	}
	if env.ViewportWidth > 0 && env.ViewportWidth < MinViewportWidth {
		r.Warnings = append(r.Warnings, msgSmallScreen)
	}

	r.Supported = len(r.Issues) == 0
	p.logger.Debug(ctx, "system check finished",
		logger.Bool("supported", r.Supported),
		logger.Int("issues", len(r.Issues)),
		logger.Int("warnings", len(r.Warnings)))
	return r
}

// Online reports whether any origin answers a HEAD request. Any HTTP
// response counts, whatever its status.
func (p *Prober) Online(ctx context.Context) bool {
	for _, origin := range p.origins {
		if p.reachable(ctx, origin) {
			return true
		}
	}
	return false
}

func (p *Prober) reachable(ctx context.Context, origin string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, origin, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug(ctx, "origin unreachable", logger.String("origin", origin), logger.Error(err))
		return false
	}
	_ = resp.Body.Close()
	return true
}

// StorageAvailable writes and removes a probe key.
func (p *Prober) StorageAvailable(ctx context.Context) bool {
	if p.store == nil {
		return false
	}
	if err := p.store.Set(ctx, storage.KeyStorageProbe, storageProbeValue); err != nil {
		return false
	}
	return p.store.Delete(ctx, storage.KeyStorageProbe) == nil
}

// WaitForCapability waits up to timeout for the gateway to become ready.
// A non-positive timeout uses the gateway's default wait.
func (p *Prober) WaitForCapability(ctx context.Context, timeout time.Duration) bool {
	if p.readiness == nil {
		return false
	}
	if timeout <= 0 {
		timeout = defaultReadinessWait
	}
	return p.readiness.WaitReady(ctx, timeout)
}
