// Package page converts live page state into a structured, serializable
// PageSnapshot consumed by the classifier, the oracle, and the orchestrator.
// Extraction runs an in-page script for the DOM-shaped work (visibility,
// selectors, labels); the detection heuristics (captcha, login, form kind,
// alerts) run on the Go side over the extracted signals.
package page

import (
	"fmt"

	"github.com/kstephens0331/carsub/internal/logging"
	"github.com/kstephens0331/carsub/internal/types"
)

// rawField mirrors the extraction script's field objects.
type rawField struct {
	Selector    string `json:"selector"`
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
	Options     []struct {
		Value string `json:"value"`
		Text  string `json:"text"`
	} `json:"options"`
}

type rawForm struct {
	Selector string     `json:"selector"`
	Action   string     `json:"action"`
	Method   string     `json:"method"`
	Text     string     `json:"text"`
	Fields   []rawField `json:"fields"`
}

type rawButton struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Type     string `json:"type"`
}

type rawPage struct {
	URL          string      `json:"url"`
	Title        string      `json:"title"`
	Forms        []rawForm   `json:"forms"`
	Buttons      []rawButton `json:"buttons"`
	CaptchaHints []string    `json:"captchaHints"`
	Alerts       []string    `json:"alerts"`
	Steps        []string    `json:"steps"`
	BodyText     string      `json:"bodyText"`
}

// Extract captures a snapshot of the driver's current page.
func Extract(driver types.PageDriver) (*types.PageSnapshot, error) {
	timer := logging.StartTimer(logging.CategorySnapshot, "Extract")
	defer timer.Stop()

	var raw rawPage
	if err := driver.Eval(extractScript, &raw); err != nil {
		return nil, fmt.Errorf("page extraction script: %w", err)
	}
	snap := build(raw)
	logging.Snapshot("extracted %s: %d forms, %d fields, %d buttons, captcha=%v login=%v",
		snap.URL, len(snap.Forms), snap.VisibleFieldCount(), len(snap.Buttons),
		snap.CaptchaDetected, snap.RequiresLogin)
	return snap, nil
}

// build assembles the snapshot from raw extraction output. Kept separate
// from Extract so tests can feed captured payloads without a browser.
func build(raw rawPage) *types.PageSnapshot {
	snap := &types.PageSnapshot{
		URL:      raw.URL,
		Title:    raw.Title,
		PageText: raw.BodyText,
	}

	for _, rf := range raw.Forms {
		form := types.FormInfo{
			Selector: rf.Selector,
			Action:   rf.Action,
			Method:   rf.Method,
		}
		for _, f := range rf.Fields {
			field := types.FormField{
				Selector:    f.Selector,
				Tag:         f.Tag,
				Type:        f.Type,
				Name:        f.Name,
				ID:          f.ID,
				Label:       f.Label,
				Placeholder: f.Placeholder,
				Required:    f.Required,
			}
			for _, o := range f.Options {
				field.Options = append(field.Options, types.Option{Value: o.Value, Text: o.Text})
			}
			form.Fields = append(form.Fields, field)
		}
		form.Kind = classifyForm(rf.Text, form.Fields)
		snap.Forms = append(snap.Forms, form)
	}

	for _, b := range raw.Buttons {
		snap.Buttons = append(snap.Buttons, types.ButtonInfo{
			Selector: b.Selector,
			Text:     b.Text,
			Type:     b.Type,
		})
	}

	snap.CaptchaDetected, snap.CaptchaType = detectCaptcha(raw.CaptchaHints)
	snap.Alerts = filterAlerts(raw.Alerts)
	snap.StepIndicators = filterSteps(raw.Steps)
	snap.RequiresLogin = detectLoginRequired(raw.BodyText + " " + joinAlerts(snap.Alerts))
	return snap
}

func joinAlerts(alerts []string) string {
	out := ""
	for _, a := range alerts {
		out += a + " "
	}
	return out
}
