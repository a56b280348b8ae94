package page

import (
	"strings"

	"github.com/kstephens0331/carsub/internal/types"
)

// captchaSignatures maps known provider markers to a captcha type. Checked
// in order; generic is the catch-all for anything mentioning captcha.
var captchaSignatures = []struct {
	markers []string
	kind    types.CaptchaType
}{
	{[]string{"google.com/recaptcha", "g-recaptcha", "grecaptcha", "recaptcha"}, types.CaptchaRecaptcha},
	{[]string{"hcaptcha.com", "h-captcha", "hcaptcha"}, types.CaptchaHcaptcha},
	{[]string{"challenges.cloudflare.com", "cf-turnstile", "turnstile"}, types.CaptchaTurnstile},
	{[]string{"arkoselabs", "funcaptcha"}, types.CaptchaFuncaptcha},
	{[]string{"captcha"}, types.CaptchaGeneric},
}

// detectCaptcha matches extraction hints against the fixed provider
// signature set.
func detectCaptcha(hints []string) (bool, types.CaptchaType) {
	joined := strings.ToLower(strings.Join(hints, " "))
	if joined == "" {
		return false, types.CaptchaNone
	}
	for _, sig := range captchaSignatures {
		for _, marker := range sig.markers {
			if strings.Contains(joined, marker) {
				return true, sig.kind
			}
		}
	}
	return false, types.CaptchaNone
}

// loginSignals are phrases that indicate the page demands authentication
// before anything can be submitted.
var loginSignals = []string{
	"login required",
	"log in to continue",
	"sign in to continue",
	"please log in",
	"please sign in",
	"you must be logged in",
	"members only",
	"create an account to continue",
	"login to submit",
	"sign in to add",
}

// listingSignals suppress the login verdict: a page inviting a listing
// submission frequently mentions "login" incidentally in its chrome.
var listingSignals = []string{
	"add your business",
	"list your business",
	"claim your listing",
	"submit your business",
	"add a business",
	"add listing",
	"free listing",
	"get listed",
	"submit your site",
}

// detectLoginRequired is the conjunction of (a negative signal present) and
// (no listing invitation present). The second clause avoids false positives
// from incidental mentions of login on pages that still accept submissions.
func detectLoginRequired(text string) bool {
	lower := strings.ToLower(text)
	negative := false
	for _, sig := range loginSignals {
		if strings.Contains(lower, sig) {
			negative = true
			break
		}
	}
	if !negative {
		return false
	}
	for _, sig := range listingSignals {
		if strings.Contains(lower, sig) {
			return false
		}
	}
	return true
}

// registrationSignals and listingFormSignals are independent, non-exclusive
// keyword sets: a form can be both a registration and a listing form.
var registrationSignals = []string{
	"password",
	"confirm password",
	"create account",
	"create an account",
	"sign up",
	"register",
	"username",
}

var listingFormSignals = []string{
	"business name",
	"company name",
	"website",
	"phone",
	"address",
	"category",
	"description",
	"zip",
	"city",
}

// classifyForm labels a form from its visible text and field labels.
func classifyForm(formText string, fields []types.FormField) types.FormKind {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(formText))
	for _, f := range fields {
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(f.Label))
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(f.Name))
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(f.Placeholder))
		if f.Type != "" {
			sb.WriteString(" ")
			sb.WriteString(f.Type)
		}
	}
	text := sb.String()

	count := func(signals []string) int {
		n := 0
		for _, s := range signals {
			if strings.Contains(text, s) {
				n++
			}
		}
		return n
	}
	registration := count(registrationSignals) >= 2
	listing := count(listingFormSignals) >= 3

	switch {
	case registration && listing:
		return types.FormKindBoth
	case registration:
		return types.FormKindRegistration
	case listing:
		return types.FormKindListing
	default:
		return types.FormKindUnknown
	}
}

// filterAlerts keeps deduplicated alert texts of plausible length. Anything
// under 3 characters is an icon; anything over 300 is a matched container,
// not a message.
func filterAlerts(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range raw {
		a = strings.TrimSpace(a)
		if len(a) < 3 || len(a) > 300 {
			continue
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// filterSteps dedupes step indicator texts and caps the count.
func filterSteps(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) >= 10 {
			break
		}
	}
	return out
}
