package page

import (
	"strings"
	"testing"

	"github.com/kstephens0331/carsub/internal/types"
)

func TestDetectCaptcha(t *testing.T) {
	cases := []struct {
		name  string
		hints []string
		found bool
		kind  types.CaptchaType
	}{
		{"none", nil, false, types.CaptchaNone},
		{"recaptcha script", []string{"https://www.google.com/recaptcha/api.js"}, true, types.CaptchaRecaptcha},
		{"recaptcha class", []string{"div.g-recaptcha"}, true, types.CaptchaRecaptcha},
		{"hcaptcha", []string{"https://js.hcaptcha.com/1/api.js"}, true, types.CaptchaHcaptcha},
		{"turnstile", []string{"https://challenges.cloudflare.com/turnstile/v0/api.js"}, true, types.CaptchaTurnstile},
		{"funcaptcha", []string{"client-api.arkoselabs.com"}, true, types.CaptchaFuncaptcha},
		{"generic", []string{"solve the captcha below"}, true, types.CaptchaGeneric},
		{"provider precedence", []string{"hcaptcha.com", "g-recaptcha"}, true, types.CaptchaRecaptcha},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			found, kind := detectCaptcha(tc.hints)
			if found != tc.found || kind != tc.kind {
				t.Fatalf("detectCaptcha(%v) = (%v, %q), want (%v, %q)", tc.hints, found, kind, tc.found, tc.kind)
			}
		})
	}
}

func TestDetectLoginRequired(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"plain login wall", "Please log in to access this page.", true},
		{"members only", "This area is members only.", true},
		{"no signal", "Browse thousands of local businesses.", false},
		{"listing invitation suppresses", "Please log in, or add your business for free.", false},
		{"incidental chrome login", "Home | About | Get listed | Please sign in", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectLoginRequired(tc.text); got != tc.want {
				t.Fatalf("detectLoginRequired(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestClassifyForm(t *testing.T) {
	listingFields := []types.FormField{
		{Label: "Business Name"},
		{Label: "Phone"},
		{Label: "Address"},
	}
	registrationFields := []types.FormField{
		{Type: "password", Label: "Password"},
		{Label: "Username"},
	}

	cases := []struct {
		name   string
		text   string
		fields []types.FormField
		want   types.FormKind
	}{
		{"listing", "", listingFields, types.FormKindListing},
		{"registration", "Sign up today", registrationFields, types.FormKindRegistration},
		{"both", "Create an account and add your listing: business name, phone, address",
			registrationFields, types.FormKindBoth},
		{"unknown", "Search our archives", []types.FormField{{Name: "q"}}, types.FormKindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyForm(tc.text, tc.fields); got != tc.want {
				t.Fatalf("classifyForm(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestFilterAlerts(t *testing.T) {
	long := strings.Repeat("x", 301)
	got := filterAlerts([]string{"  Error: email required  ", "!", long, "Error: email required", "Saved"})
	if len(got) != 2 {
		t.Fatalf("filterAlerts = %v, want 2 entries", got)
	}
	if got[0] != "Error: email required" || got[1] != "Saved" {
		t.Fatalf("filterAlerts = %v, want trimmed dedup", got)
	}
}

func TestFilterSteps(t *testing.T) {
	var raw []string
	for i := 0; i < 15; i++ {
		raw = append(raw, "Step "+string(rune('A'+i)))
	}
	raw = append(raw, "Step A", "")
	got := filterSteps(raw)
	if len(got) != 10 {
		t.Fatalf("filterSteps = %d entries, want capped at 10", len(got))
	}
}

func TestBuild(t *testing.T) {
	raw := rawPage{
		URL:   "https://dir.example/submit",
		Title: "Add Your Business",
		Forms: []rawForm{{
			Selector: "#listing-form",
			Action:   "/submit",
			Method:   "post",
			Text:     "Business name, phone, address and category",
			Fields: []rawField{
				{Selector: "#name", Tag: "input", Type: "text", Name: "business_name", Label: "Business Name", Required: true},
				{Selector: "#phone", Tag: "input", Type: "tel", Name: "phone", Label: "Phone"},
				{Selector: "#cat", Tag: "select", Name: "category", Label: "Category",
					Options: []struct {
						Value string `json:"value"`
						Text  string `json:"text"`
					}{{"1", "Auto Repair"}, {"2", "Towing"}}},
			},
		}},
		Buttons:      []rawButton{{Selector: "#go", Text: "Submit Listing", Type: "submit"}},
		CaptchaHints: []string{"g-recaptcha"},
		Alerts:       []string{"Please complete all required fields"},
		Steps:        []string{"Step 1 of 2", "Step 2 of 2"},
		BodyText:     "Add your business to the directory.",
	}

	snap := build(raw)
	if snap.URL != raw.URL || snap.Title != raw.Title {
		t.Fatalf("snapshot identity = (%q, %q), want raw values", snap.URL, snap.Title)
	}
	if snap.VisibleFieldCount() != 3 {
		t.Fatalf("VisibleFieldCount = %d, want 3", snap.VisibleFieldCount())
	}
	if snap.Forms[0].Kind != types.FormKindListing {
		t.Fatalf("form kind = %q, want listing", snap.Forms[0].Kind)
	}
	if !snap.CaptchaDetected || snap.CaptchaType != types.CaptchaRecaptcha {
		t.Fatalf("captcha = (%v, %q), want recaptcha", snap.CaptchaDetected, snap.CaptchaType)
	}
	if snap.RequiresLogin {
		t.Fatal("RequiresLogin = true, want false for a listing invitation")
	}
	opts := snap.CategoryOptions()
	if len(opts) != 2 || opts[0] != "Auto Repair" {
		t.Fatalf("CategoryOptions = %v, want [Auto Repair Towing]", opts)
	}
	if len(snap.StepIndicators) != 2 {
		t.Fatalf("StepIndicators = %v, want 2", snap.StepIndicators)
	}
}
