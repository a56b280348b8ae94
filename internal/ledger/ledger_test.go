package ledger_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kstephens0331/carsub/internal/ledger"
	"github.com/kstephens0331/carsub/internal/types"
)

// TestMain ensures no goroutines leak across ledger tests.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := ledger.Open(path, "A1 Auto Repair")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestAppendAndStats(t *testing.T) {
	s := openTestStore(t)

	entries := []types.LedgerEntry{
		{URL: "https://a.example", Status: types.StatusSubmitted},
		{URL: "https://b.example", Status: types.StatusPendingVerification},
		{URL: "https://c.example", Status: types.StatusFailed},
		{URL: "https://d.example", Status: types.StatusSkipped},
		{URL: "https://e.example", Status: types.StatusSubmitted},
	}
	for _, e := range entries {
		require.NoError(t, s.Append(e))
	}

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Submitted)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 5, stats.Total())
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := ledger.Open(path, "A1 Auto Repair")
	require.NoError(t, err)
	require.NoError(t, s.Append(types.LedgerEntry{URL: "https://a.example", Status: types.StatusSubmitted, Notes: "first"}))
	require.NoError(t, s.SetCampaignStart(time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, s.Close())

	s2, err := ledger.Open(path, "ignored on reopen")
	require.NoError(t, err)
	defer s2.Close()

	entries, err := s2.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://a.example", entries[0].URL)
	assert.Equal(t, "first", entries[0].Notes)

	start, ok, err := s2.CampaignStart()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, start.Equal(time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)))
}

func TestIsDone_LatestEntryWins(t *testing.T) {
	s := openTestStore(t)
	url := "https://a.example"

	done, err := s.IsDone(url)
	require.NoError(t, err)
	assert.False(t, done, "unknown url must not be done")

	require.NoError(t, s.Append(types.LedgerEntry{URL: url, Status: types.StatusFailed}))
	done, err = s.IsDone(url)
	require.NoError(t, err)
	assert.False(t, done, "failed attempt must allow retry")

	require.NoError(t, s.Append(types.LedgerEntry{URL: url, Status: types.StatusSubmitted}))
	done, err = s.IsDone(url)
	require.NoError(t, err)
	assert.True(t, done, "latest submitted entry must mark the url done")
}

func TestIsDone_PendingCounts(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Append(types.LedgerEntry{URL: "https://p.example", Status: types.StatusPendingVerification}))

	done, err := s.IsDone("https://p.example")
	require.NoError(t, err)
	assert.True(t, done, "pending_verification is a terminal success")
}

func TestCompletedSet(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Append(types.LedgerEntry{URL: "https://a.example", Status: types.StatusFailed}))
	require.NoError(t, s.Append(types.LedgerEntry{URL: "https://a.example", Status: types.StatusSubmitted}))
	require.NoError(t, s.Append(types.LedgerEntry{URL: "https://b.example", Status: types.StatusFailed}))
	require.NoError(t, s.Append(types.LedgerEntry{URL: "https://c.example", Status: types.StatusSkipped}))

	done, err := s.CompletedSet()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"https://a.example": true}, done)
}

func TestEntriesBetween_Boundaries(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{-time.Second, 0, 12 * time.Hour, 24*time.Hour - time.Second, 24 * time.Hour} {
		require.NoError(t, s.Append(types.LedgerEntry{
			URL:       "https://a.example",
			Status:    types.StatusSubmitted,
			Timestamp: base.Add(offset),
		}))
	}

	got, err := s.EntriesBetween(base, base.Add(24*time.Hour))
	require.NoError(t, err)
	// start is inclusive, end exclusive.
	assert.Len(t, got, 3)
}

func TestSetCampaignStart_WriteOnce(t *testing.T) {
	s := openTestStore(t)
	first := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SetCampaignStart(first))
	require.NoError(t, s.SetCampaignStart(time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC)))

	start, ok, err := s.CampaignStart()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, start.Equal(first), "second SetCampaignStart must be a no-op")
}

func TestExportJSON(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Append(types.LedgerEntry{URL: "https://a.example", Status: types.StatusSubmitted, Notes: "ok"}))
	require.NoError(t, s.SetCampaignStart(time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)))

	data, err := s.ExportJSON()
	require.NoError(t, err)

	var export ledger.Export
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "A1 Auto Repair", export.Client)
	assert.NotEmpty(t, export.Created)
	assert.NotEmpty(t, export.CampaignStart)
	assert.Equal(t, 1, export.Stats.Submitted)
	require.Len(t, export.Entries, 1)
	assert.Equal(t, "ok", export.Entries[0].Notes)
}
