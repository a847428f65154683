package download

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"golang.org/x/time/rate"
)

// Fetcher скачивает содержимое по URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Result, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string) (Result, error)

func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (Result, error) {
	return f(ctx, rawURL)
}

// Config — настройки CollyFetcher.
type Config struct {
	Timeout        time.Duration
	MaxBodyBytes   int
	RatePerHost    float64 // запросов в секунду на хост, 0 — без ограничения
	HostParallel   int     // одновременных запросов на один хост, 0 — без ограничения
	RandomizeAgent bool
}

// CollyFetcher скачивает изображения через colly. Родительский коллектор
// хранит общие лимиты и HTTP-клиент, на каждый запрос создаётся клон со своими
// обработчиками, поэтому Fetch можно вызывать из разных горутин.
type CollyFetcher struct {
	collector *colly.Collector
	cfg       Config
	limiters  *hostLimiters
}

// NewCollyFetcher - конструктор
func NewCollyFetcher(cfg Config) (*CollyFetcher, error) {
	// colly silently truncates at MaxBodySize, so read one byte past the
	// limit and reject the response in Fetch. Zero disables the limit.
	bodyLimit := 0
	if cfg.MaxBodyBytes > 0 {
		bodyLimit = cfg.MaxBodyBytes + 1
	}
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(bodyLimit),
	)
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}
	if cfg.HostParallel > 0 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: cfg.HostParallel}); err != nil {
			return nil, fmt.Errorf("CollyFetcher: failed to set limit rule: %w", err)
		}
	}
	return &CollyFetcher{collector: c, cfg: cfg, limiters: newHostLimiters(cfg.RatePerHost)}, nil
}

// Fetch выполняет GET-запрос. Любой статус 2xx считается успехом. Ответы с
// другим статусом, тело больше MaxBodyBytes и сетевые сбои возвращаются как
// *Error; проверку содержимого делает вызывающий (Validate).
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Kind: KindNetwork, Detail: err.Error()}
	}
	if err := f.limiters.wait(ctx, rawURL); err != nil {
		return Result{}, &Error{Kind: KindNetwork, Detail: err.Error()}
	}

	c := f.collector.Clone()
	c.Context = ctx
	if f.cfg.RandomizeAgent {
		extensions.RandomUserAgent(c)
	}

	var (
		res     Result
		respErr *Error
	)
	c.OnResponse(func(r *colly.Response) {
		res, respErr = f.classify(r)
	})

	if err := c.Visit(rawURL); err != nil {
		return Result{}, &Error{Kind: KindNetwork, Detail: err.Error()}
	}
	if respErr != nil {
		return Result{StatusCode: res.StatusCode}, respErr
	}
	return res, nil
}

func (f *CollyFetcher) classify(r *colly.Response) (Result, *Error) {
	res := Result{Body: r.Body, StatusCode: r.StatusCode}
	if r.Headers != nil {
		res.ContentType = r.Headers.Get("Content-Type")
	}
	if r.StatusCode < 200 || r.StatusCode >= 300 {
		return res, &Error{Kind: KindHTTPStatus, StatusCode: r.StatusCode}
	}
	if f.cfg.MaxBodyBytes > 0 && len(r.Body) > f.cfg.MaxBodyBytes {
		return res, &Error{Kind: KindContent, Detail: fmt.Sprintf("response exceeds %d bytes", f.cfg.MaxBodyBytes)}
	}
	return res, nil
}

// hostLimiters раздаёт по одному rate.Limiter на хост.
type hostLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	byKey map[string]*rate.Limiter
}

func newHostLimiters(perSecond float64) *hostLimiters {
	if perSecond <= 0 {
		return nil
	}
	return &hostLimiters{limit: rate.Limit(perSecond), byKey: make(map[string]*rate.Limiter)}
}

func (h *hostLimiters) wait(ctx context.Context, rawURL string) error {
	if h == nil {
		return nil
	}
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	h.mu.Lock()
	l, ok := h.byKey[host]
	if !ok {
		l = rate.NewLimiter(h.limit, 1)
		h.byKey[host] = l
	}
	h.mu.Unlock()
	return l.Wait(ctx)
}
