package campaign

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kstephens0331/carsub/internal/types"
)

func writeDirectories(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "directories.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadDirectories(t *testing.T) {
	path := writeDirectories(t, `
directories:
  - name: Yelp
    url: https://biz.yelp.com
    dr: 94
  - name: Auto Repair Network
    url: https://autorepairnetwork.example
    dr: 35
    tier: niche
`)

	dirs, err := LoadDirectories(path)
	if err != nil {
		t.Fatalf("LoadDirectories() error = %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("len(dirs) = %d, want 2", len(dirs))
	}
	if dirs[0].Name != "Yelp" || dirs[0].DomainRating != 94 {
		t.Fatalf("dirs[0] = %+v, want Yelp DR 94", dirs[0])
	}
	if dirs[1].Tier != types.TierNiche {
		t.Fatalf("dirs[1].Tier = %q, want niche", dirs[1].Tier)
	}
}

func TestLoadDirectories_DuplicateURLFirstWins(t *testing.T) {
	path := writeDirectories(t, `
directories:
  - name: First
    url: https://dup.example
    dr: 50
  - name: Second
    url: https://dup.example
    dr: 60
`)

	dirs, err := LoadDirectories(path)
	if err != nil {
		t.Fatalf("LoadDirectories() error = %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("len(dirs) = %d, want 1 after dedup", len(dirs))
	}
	if dirs[0].Name != "First" {
		t.Fatalf("kept %q, want First", dirs[0].Name)
	}
}

func TestLoadDirectories_MissingURL(t *testing.T) {
	path := writeDirectories(t, `
directories:
  - name: Broken
    dr: 50
`)

	_, err := LoadDirectories(path)
	if err == nil {
		t.Fatal("LoadDirectories() = nil error, want missing url error")
	}
	if !strings.Contains(err.Error(), "no url") {
		t.Fatalf("error = %v, want no url", err)
	}
}

func TestLoadDirectories_MissingFile(t *testing.T) {
	_, err := LoadDirectories(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("LoadDirectories() = nil error, want read error")
	}
}
