package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"maps-scraper/config"
	"maps-scraper/utils"
)

// Session is one exclusively-owned automated browser tab.
// It is not safe for concurrent use.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	cfg      config.Config
	log      *zap.SugaredLogger
	verifier EmailVerifier

	// Strategy names the launch strategy that produced this session.
	Strategy string
}

// launchStrategy resolves the Chrome executable to start. An empty path
// means chromedp's own lookup.
type launchStrategy struct {
	name    string
	resolve func(ctx context.Context, cfg config.Config) (string, error)
}

// starter turns a resolved executable into a live session.
type starter func(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, execPath string) (*Session, error)

func defaultStrategies() []launchStrategy {
	return []launchStrategy{
		{name: "direct", resolve: resolveDirect},
		{name: "local-path", resolve: resolveLocalPath},
		{name: "download", resolve: resolveDownload},
	}
}

func resolveDirect(context.Context, config.Config) (string, error) {
	return "", nil
}

func resolveLocalPath(_ context.Context, cfg config.Config) (string, error) {
	if cfg.ChromePath != "" {
		return cfg.ChromePath, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	return "", errors.New("no local chrome executable found")
}

func resolveDownload(ctx context.Context, cfg config.Config) (string, error) {
	b := launcher.NewBrowser()
	b.Context = ctx
	if cfg.DownloadDir != "" {
		b.RootDir = cfg.DownloadDir
	}
	path, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("download chromium: %w", err)
	}
	return path, nil
}

// Acquire starts a browser session, trying each launch strategy in order and
// returning the first that yields a responsive browser.
func Acquire(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*Session, error) {
	return acquire(ctx, cfg, log, defaultStrategies(), startChrome)
}

func acquire(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, strategies []launchStrategy, start starter) (*Session, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var last error
	for _, st := range strategies {
		if err := ctx.Err(); err != nil {
			last = err
			break
		}
		execPath, err := st.resolve(ctx, cfg)
		if err != nil {
			log.Debugf("launch strategy %s: %v", st.name, err)
			last = fmt.Errorf("%s: %w", st.name, err)
			continue
		}
		s, err := start(ctx, cfg, log, execPath)
		if err != nil {
			log.Debugf("launch strategy %s: %v", st.name, err)
			last = fmt.Errorf("%s: %w", st.name, err)
			continue
		}
		s.Strategy = st.name
		log.Infof("browser ready via %s strategy", st.name)
		return s, nil
	}
	if last == nil {
		last = errors.New("no launch strategies configured")
	}
	return nil, &DriverUnavailableError{Attempts: len(strategies), Last: last}
}

func startChrome(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, execPath string) (*Session, error) {
	allocCtx, cancelAlloc := utils.NewAllocator(ctx, cfg, execPath)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Debugf),
		chromedp.WithErrorf(log.Debugf),
	)

	// The first Run must use the tab context itself: it launches the browser,
	// and a timeout-derived context here would kill it on return.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	probeCtx, cancelProbe := context.WithTimeout(tabCtx, cfg.WaitTimeout)
	defer cancelProbe()
	var product string
	if err := chromedp.Run(probeCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		_, product, _, _, _, err = browser.GetVersion().Do(ctx)
		return err
	})); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("probe browser: %w", err)
	}
	log.Debugf("connected to %s", product)

	s := &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		cfg:         cfg,
		log:         log,
	}
	if cfg.VerifyEmailMX {
		s.verifier = NewDNSVerifier(cfg.DNSServers)
	}
	return s, nil
}

// Release shuts the browser down. Teardown failures are logged, never
// returned, so they cannot mask the batch outcome. Safe to call twice.
func (s *Session) Release() {
	if s == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger().Debugf("release panic suppressed: %v", r)
		}
	}()
	if s.ctx != nil {
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger().Debugf("close browser: %v", err)
		}
	}
	if s.cancelTab != nil {
		s.cancelTab()
		s.cancelTab = nil
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
	s.ctx = nil
}

func (s *Session) logger() *zap.SugaredLogger {
	if s.log == nil {
		return zap.NewNop().Sugar()
	}
	return s.log
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.ctx == nil {
		return ErrSessionLost
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return classify(chromedp.Run(runCtx, actions...))
}
