// File: cmd/upload_test.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkfeed/internal/config"
	"github.com/xkilldash9x/linkfeed/internal/engine/enginetest"
	"github.com/xkilldash9x/linkfeed/internal/selector"
)

var (
	selAdd      = selector.CSS("button.add")
	selChip     = selector.CSS("mat-chip")
	selWebsite  = selector.CSS("span.web")
	selInput    = selector.CSS("input.url")
	selInsert   = selector.CSS("button.insert")
	selEvidence = selector.CSS(".source-item")
)

// selectorConfig points every action and indicator at the fake notebook.
const selectorConfig = `selectors:
  open_add_dialog: ["button.add"]
  select_website_option: ["span.web"]
  fill_url_field: ["input.url"]
  click_insert: ["button.insert"]
  ready: [".title"]
  chooser: ["mat-chip"]
  evidence: [".source-item"]
  next_ready: ["button.add"]
  section: ["section"]
wait:
  pre_click: 1ms
  post_click: 1ms
  post_submit: 1ms
  inter_item: 5ms
  poll_budget: 20ms
  poll_interval: 2ms
  cache_attempt: 5ms
  candidate: 20ms
  input_candidate: 20ms
  chooser_probe: 5ms
  chooser_wait: 10ms
  startup: 50ms
  startup_fallback: 10ms
  startup_settle: 1ms
  startup_poll: 2ms
`

type fakeSession struct {
	*enginetest.FakePage
	html   string
	closed bool
	cfg    config.BrowserConfig
}

func (f *fakeSession) HTML(context.Context, string) (string, error) { return f.html, nil }

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// fakeNotebook opens the chooser on add and records a source on submit.
func fakeNotebook() *fakeSession {
	page := enginetest.NewFakePage()
	page.Add(selector.CSS(".title"), selAdd, selWebsite, selInput, selInsert)
	page.OnSuccess(func(p *enginetest.FakePage, call enginetest.Call) {
		switch {
		case call.Op == enginetest.OpClick && call.Selector == selAdd.String():
			p.Add(selChip)
		case call.Op == enginetest.OpScriptClick:
			p.Remove(selChip)
			p.Add(selEvidence)
		}
	})
	return &fakeSession{FakePage: page}
}

func useSession(t *testing.T, s *fakeSession) {
	t.Helper()
	newBrowserSession = func(_ context.Context, cfg config.BrowserConfig, _ *zap.Logger) (browserSession, error) {
		s.cfg = cfg
		return s, nil
	}
}

func writeLinks(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d. https://docs.example.com/page-%d.html\n", i, i)
	}
	path := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestUploadCmd(t *testing.T) {
	t.Run("submits the selected range", func(t *testing.T) {
		resetForTest(t)
		session := fakeNotebook()
		useSession(t, session)
		path := writeConfig(t, selectorConfig)
		links := writeLinks(t, 10)

		out, err := execute(t, "",
			"upload", "--config", path,
			"--url", "https://notebook.example/n/1",
			"--file", links, "--start", "3", "--end", "7", "--max", "2", "--no-wait")
		require.NoError(t, err)

		assert.Contains(t, out, "Uploading entries 3 to 4 (2 links) of 10")
		assert.Contains(t, out, "[1/2] https://docs.example.com/page-3.html")
		assert.Contains(t, out, "[2/2] https://docs.example.com/page-4.html")
		assert.Contains(t, out, "Submitted 2 of 2 links")
		assert.NotContains(t, out, "Press Enter")
		assert.True(t, session.closed)

		var filled []string
		for _, c := range session.Calls(enginetest.OpFill) {
			filled = append(filled, c.Text)
		}
		assert.Equal(t, []string{
			"https://docs.example.com/page-3.html",
			"https://docs.example.com/page-4.html",
		}, filled)
		navs := session.Calls(enginetest.OpNavigate)
		require.Len(t, navs, 1)
		assert.Equal(t, "https://notebook.example/n/1", navs[0].Text)
	})

	t.Run("exit gate waits for the operator", func(t *testing.T) {
		resetForTest(t)
		session := fakeNotebook()
		useSession(t, session)
		path := writeConfig(t, selectorConfig)

		out, err := execute(t, "\n",
			"upload", "--config", path,
			"--url", "https://notebook.example/n/1",
			"--file", writeLinks(t, 1))
		require.NoError(t, err)
		assert.Contains(t, out, "Done. Press Enter to close the browser...")
		assert.True(t, session.closed)
	})

	t.Run("fatal error keeps the browser for inspection", func(t *testing.T) {
		resetForTest(t)
		session := fakeNotebook()
		session.Remove(selInsert)
		session.Fail(enginetest.OpPressEnter, selector.Candidate{}, errors.New("keyboard gone"))
		useSession(t, session)
		path := writeConfig(t, selectorConfig)

		out, err := execute(t, "\n",
			"upload", "--config", path,
			"--url", "https://notebook.example/n/1",
			"--file", writeLinks(t, 3))
		require.Error(t, err)
		assert.Contains(t, out, "Submitted 0 of 3 links")
		assert.Contains(t, out, "The browser stays open for inspection.")
		assert.NotContains(t, out, "Error:", "the error is reported once, by Execute")
		assert.True(t, session.closed)
	})

	t.Run("url is required", func(t *testing.T) {
		resetForTest(t)
		useSession(t, fakeNotebook())
		path := writeConfig(t, "")

		_, err := execute(t, "", "upload", "--config", path, "--file", writeLinks(t, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "notebook URL is required")
	})

	t.Run("empty range does not start a browser", func(t *testing.T) {
		resetForTest(t)
		started := false
		newBrowserSession = func(context.Context, config.BrowserConfig, *zap.Logger) (browserSession, error) {
			started = true
			return nil, errors.New("unexpected")
		}
		path := writeConfig(t, "")

		out, err := execute(t, "",
			"upload", "--config", path, "--url", "https://notebook.example/n/1",
			"--file", writeLinks(t, 3), "--start", "5")
		require.NoError(t, err)
		assert.Contains(t, out, "No links selected")
		assert.False(t, started)
	})

	t.Run("missing link file", func(t *testing.T) {
		resetForTest(t)
		path := writeConfig(t, "")

		_, err := execute(t, "",
			"upload", "--config", path, "--url", "https://notebook.example/n/1",
			"--file", filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})
}

func TestBuildCatalog(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		catalog, err := buildCatalog(config.SelectorsConfig{})
		require.NoError(t, err)
		assert.Equal(t,
			selector.DefaultCatalog().CandidatesFor(selector.OpenAddDialog),
			catalog.CandidatesFor(selector.OpenAddDialog))
	})

	t.Run("overrides replace only their list", func(t *testing.T) {
		catalog, err := buildCatalog(config.SelectorsConfig{
			ClickInsert: []string{"button.go", "//button[text()='Go']"},
			Evidence:    []string{".done"},
		})
		require.NoError(t, err)

		assert.Equal(t, []selector.Candidate{
			selector.CSS("button.go"),
			selector.XPath("//button[text()='Go']"),
		}, catalog.CandidatesFor(selector.ClickInsert))
		assert.Equal(t, []selector.Candidate{selector.CSS(".done")}, catalog.Indicators(selector.Evidence))
		assert.Equal(t,
			selector.DefaultCatalog().CandidatesFor(selector.FillURLField),
			catalog.CandidatesFor(selector.FillURLField))
	})
}
