package types

import "testing"

func TestEntryStatusIsTerminalSuccess(t *testing.T) {
	cases := []struct {
		status EntryStatus
		want   bool
	}{
		{StatusSubmitted, true},
		{StatusPendingVerification, true},
		{StatusFailed, false},
		{StatusSkipped, false},
	}
	for _, tc := range cases {
		if got := tc.status.IsTerminalSuccess(); got != tc.want {
			t.Errorf("%q.IsTerminalSuccess() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestDirectoryHost(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.yelp.com/biz/add", "yelp.com"},
		{"http://example.com", "example.com"},
		{"https://sub.example.com/path?q=1", "sub.example.com"},
	}
	for _, tc := range cases {
		d := Directory{URL: tc.url}
		if got := d.Host(); got != tc.want {
			t.Errorf("Host(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestPageSnapshotHelpers(t *testing.T) {
	snap := PageSnapshot{
		Forms: []FormInfo{
			{Fields: []FormField{
				{Selector: "#a"},
				{Selector: "#b", Options: []Option{{Value: "1", Text: "Auto Repair"}, {Value: "2", Text: "  "}}},
			}},
			{Fields: []FormField{{Selector: "#c", Options: []Option{{Value: "3", Text: "Towing"}}}}},
		},
	}

	if got := snap.VisibleFieldCount(); got != 3 {
		t.Fatalf("VisibleFieldCount() = %d, want 3", got)
	}
	opts := snap.CategoryOptions()
	if len(opts) != 2 || opts[0] != "Auto Repair" || opts[1] != "Towing" {
		t.Fatalf("CategoryOptions() = %v, want blank-trimmed texts", opts)
	}
}

func TestLedgerStatsTotal(t *testing.T) {
	stats := LedgerStats{Submitted: 2, Pending: 1, Failed: 3, Skipped: 4}
	if got := stats.Total(); got != 10 {
		t.Fatalf("Total() = %d, want 10", got)
	}
}
