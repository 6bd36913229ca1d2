package chromedp_crawler

import (
	"context"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthScript runs before any page script of every document.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['pt-BR', 'pt']});
`

// disguise returns the actions that hide the automation fingerprint. Running
// them also starts the browser.
func disguise(ua userAgent) []chromedp.Action {
	return []chromedp.Action{
		emulation.SetUserAgentOverride(ua.value).
			WithAcceptLanguage(acceptLanguage).
			WithPlatform(ua.platform),
		emulation.SetLocaleOverride().WithLocale(locale),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	}
}
