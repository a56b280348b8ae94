package page

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/kstephens0331/carsub/internal/types"
)

const staticUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// StaticSnapshot fetches a URL over plain HTTP and builds a reduced snapshot
// from the static HTML: title, text, alerts, and select options. It sees no
// rendered layout, so field visibility and selectors are approximate - good
// enough for the tier-2 relevance check and dry runs, never for filling.
func StaticSnapshot(ctx context.Context, url string) (*types.PageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", staticUserAgent)

	// Directory sites commonly bounce through a consent or region redirect
	// that sets cookies before serving the real page.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	client := &http.Client{Timeout: 30 * time.Second, Jar: jar}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return snapshotFromDocument(url, doc), nil
}

func snapshotFromDocument(url string, doc *goquery.Document) *types.PageSnapshot {
	// Captcha hints come from script/iframe srcs, so collect them before
	// stripping script tags for the text pass.
	var hints []string
	doc.Find("iframe[src], script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			hints = append(hints, src)
		}
	})

	doc.Find("script, style, noscript").Remove()

	snap := &types.PageSnapshot{
		URL:   url,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	body := doc.Find("body").Text()
	snap.PageText = strings.Join(strings.Fields(body), " ")
	if len(snap.PageText) > 20000 {
		snap.PageText = snap.PageText[:20000]
	}

	// Collect select options into one pseudo-form so CategoryOptions works.
	var fields []types.FormField
	doc.Find("select").Each(func(_ int, sel *goquery.Selection) {
		field := types.FormField{Tag: "select"}
		if name, ok := sel.Attr("name"); ok {
			field.Name = name
			field.Selector = fmt.Sprintf(`select[name=%q]`, name)
		}
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			value, _ := opt.Attr("value")
			field.Options = append(field.Options, types.Option{
				Value: value,
				Text:  strings.TrimSpace(opt.Text()),
			})
		})
		if len(field.Options) > 0 {
			fields = append(fields, field)
		}
	})
	if len(fields) > 0 {
		snap.Forms = append(snap.Forms, types.FormInfo{Kind: types.FormKindUnknown, Fields: fields})
	}

	snap.CaptchaDetected, snap.CaptchaType = detectCaptcha(hints)
	snap.RequiresLogin = detectLoginRequired(snap.PageText)
	return snap
}
