// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkfeed/internal/browser/stealth"
	"github.com/xkilldash9x/linkfeed/internal/config"
	"github.com/xkilldash9x/linkfeed/internal/engine"
)

const launchTimeout = 30 * time.Second

// Session is one Chrome instance with a single tab. It implements engine.Page.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	// cancelAlloc stops the Chrome process.
	cancelAlloc context.CancelFunc
	cfg         config.BrowserConfig
	logger      *zap.Logger

	mu       sync.Mutex
	isClosed bool
}

var _ engine.Page = (*Session)(nil)

// NewSession launches Chrome and opens a blank tab. The browser lives until
// Close is called or ctx is canceled.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	sessionLogger := logger.Named("browser").With(zap.String("session_id", sessionID))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)

	sugar := sessionLogger.Sugar()
	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(sugar.Debugf))
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &Session{
		id:          sessionID,
		ctx:         tabCtx,
		cancel:      cancelTab,
		cancelAlloc: cancelAlloc,
		cfg:         cfg,
		logger:      sessionLogger,
	}

	launchCtx, cancelLaunch := context.WithTimeout(ctx, launchTimeout)
	defer cancelLaunch()

	var tasks chromedp.Tasks
	if cfg.Stealth {
		tasks = append(tasks, stealth.Apply(stealth.Persona{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
		}, sessionLogger))
	}
	// A blank navigation proves the browser is up and the tab is attached.
	tasks = append(tasks, chromedp.Navigate("about:blank"))

	if err := s.run(launchCtx, tasks); err != nil {
		s.release()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	sessionLogger.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		// Cancel closes the browser gracefully so the profile is flushed.
		done <- chromedp.Cancel(s.ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-closeCtx.Done():
		err = fmt.Errorf("timed out closing browser: %w", closeCtx.Err())
	}
	s.release()

	if err != nil {
		s.logger.Warn("Browser did not close cleanly.", zap.Error(err))
	}
	return err
}

func (s *Session) release() {
	s.cancel()
	s.cancelAlloc()
}

// run executes actions within the session, bounded by ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	return chromedp.Run(runCtx, actions...)
}
