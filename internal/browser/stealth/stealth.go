package stealth

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

//go:embed evasions.js
var evasionsTemplate string

// Persona describes what the browser reports about itself. Empty fields
// leave Chrome's own value in place.
type Persona struct {
	UserAgent      string
	AcceptLanguage string
}

// Languages returns the language tags of AcceptLanguage, without weights.
func (p Persona) Languages() []string {
	var langs []string
	for _, part := range strings.Split(p.AcceptLanguage, ",") {
		tag, _, _ := strings.Cut(part, ";")
		if tag = strings.TrimSpace(tag); tag != "" {
			langs = append(langs, tag)
		}
	}
	return langs
}

// Script returns the evasion script for p.
func (p Persona) Script() string {
	langs := p.Languages()
	if langs == nil {
		langs = []string{}
	}
	encoded, err := json.Marshal(langs)
	if err != nil {
		encoded = []byte("[]")
	}
	return strings.Replace(evasionsTemplate, "__LANGUAGES__", string(encoded), 1)
}

// Apply returns the actions that make an automated browser pass the
// sign-in page's automation checks. They must run before the first
// navigation.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser persona.",
		zap.String("user_agent", p.UserAgent),
		zap.String("accept_language", p.AcceptLanguage),
	)

	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(p.Script()).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),
	}

	if p.UserAgent != "" {
		override := emulation.SetUserAgentOverride(p.UserAgent)
		if p.AcceptLanguage != "" {
			override = override.WithAcceptLanguage(p.AcceptLanguage)
		}
		tasks = append(tasks, override)
	}
	if langs := p.Languages(); len(langs) > 0 {
		tasks = append(tasks,
			emulation.SetLocaleOverride().WithLocale(strings.ReplaceAll(langs[0], "-", "_")),
			network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": p.AcceptLanguage}),
		)
	}
	return tasks
}
