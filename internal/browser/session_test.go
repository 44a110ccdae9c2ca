// internal/browser/session_test.go
package browser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/linkfeed/internal/browser"
	"github.com/xkilldash9x/linkfeed/internal/config"
	"github.com/xkilldash9x/linkfeed/internal/selector"
)

const fixturePage = `<!DOCTYPE html>
<html><body>
<section>
  <button id="add" aria-label="Add source"
    onclick="document.getElementById('dialog').style.display='block'">Add</button>
</section>
<div id="dialog" style="display:none">
  <span class="web">Website</span>
  <input id="url" type="url" value="stale">
  <button id="insert"
    onclick="document.getElementById('status').textContent=document.getElementById('url').value">Insert</button>
</div>
<div id="status"></div>
<p id="hidden" style="display:none">hidden</p>
</body></html>`

// newTestSession starts headless Chrome against the fixture page, or skips
// when no browser is installed.
func newTestSession(t *testing.T) (*browser.Session, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}
	found := false
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no Chrome binary on PATH")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(fixturePage))
	}))
	t.Cleanup(server.Close)

	cfg := config.BrowserConfig{
		Headless:     true,
		Stealth:      true,
		PostLoadWait: 50 * time.Millisecond,
	}
	s, err := browser.NewSession(context.Background(), cfg, zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, server.URL
}

func TestSessionDrivesPage(t *testing.T) {
	s, url := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, s.Navigate(ctx, url))
	assert.NotEmpty(t, s.ID())

	t.Run("present sees hidden elements", func(t *testing.T) {
		ok, err := s.Present(ctx, selector.CSS("#hidden"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Present(ctx, selector.CSS("#missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("query waits for visibility", func(t *testing.T) {
		qctx, qcancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer qcancel()
		_, err := s.Query(qctx, selector.CSS("#hidden"), nil)
		assert.Error(t, err)
	})

	t.Run("scoped xpath query and click", func(t *testing.T) {
		scope := selector.CSS("section")
		node, err := s.Query(ctx, selector.Text("button", "Add"), &scope)
		require.NoError(t, err)
		require.NoError(t, s.ScrollIntoView(ctx, node))
		require.NoError(t, s.Click(ctx, node))

		_, err = s.Query(ctx, selector.CSS(`input[type="url"]`), nil)
		require.NoError(t, err)
	})

	t.Run("fill replaces the value and script click submits", func(t *testing.T) {
		input, err := s.Query(ctx, selector.CSS("#url"), nil)
		require.NoError(t, err)
		require.NoError(t, s.Fill(ctx, input, "https://example.com/a"))

		insert, err := s.Query(ctx, selector.CSS("#insert"), nil)
		require.NoError(t, err)
		require.NoError(t, s.ScriptClick(ctx, insert))

		html, err := s.HTML(ctx, url)
		require.NoError(t, err)
		assert.Contains(t, html, `id="status"`)
	})

	t.Run("type at focus overwrites the field", func(t *testing.T) {
		add, err := s.Query(ctx, selector.CSS("#add"), nil)
		require.NoError(t, err)
		require.NoError(t, s.Click(ctx, add))

		input, err := s.Query(ctx, selector.CSS("#url"), nil)
		require.NoError(t, err)
		require.NoError(t, s.Click(ctx, input))
		require.NoError(t, s.TypeAtFocus(ctx, "https://example.com/b"))
		require.NoError(t, s.PressEnter(ctx))

		insert, err := s.Query(ctx, selector.CSS("#insert"), nil)
		require.NoError(t, err)
		require.NoError(t, s.Click(ctx, insert))

		ok, err := s.Present(ctx, selector.XPath(`//div[@id="status"][normalize-space(.)="https://example.com/b"]`))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
