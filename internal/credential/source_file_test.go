package credential

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSourceLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	write("alice.json", `{
		"email": "alice@example.com",
		"project_id": "projects/alice",
		"access_token": "at",
		"refresh_token": "rt",
		"expiry_date": 1893456000000
	}`)
	write("noemail.json", `{"refresh_token": "rt"}`)
	write("broken.json", `{not json`)
	write("empty.json", `{}`)
	write("readme.txt", "not an account")

	accounts, err := NewFileSource(dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("account count = %d, want 2 (broken and tokenless skipped)", len(accounts))
	}

	byEmail := make(map[string]*Account)
	for _, acct := range accounts {
		byEmail[acct.Email] = acct
	}

	alice := byEmail["alice@example.com"]
	if alice == nil {
		t.Fatal("alice not loaded")
	}
	if alice.ID != "alice.json" {
		t.Errorf("ID = %q", alice.ID)
	}
	if alice.ProjectID != "projects/alice" {
		t.Errorf("ProjectID = %q", alice.ProjectID)
	}
	if want := time.UnixMilli(1893456000000); !alice.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", alice.ExpiresAt, want)
	}

	// Email falls back to the file name.
	if byEmail["noemail"] == nil {
		t.Errorf("filename-derived account missing: %v", byEmail)
	}
}

func TestFileSourceSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := NewFileSource(dir)

	acct := &Account{
		ID:           "a.json",
		Email:        "a@example.com",
		ProjectID:    "projects/a",
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Millisecond),
	}
	acct.init()

	if err := source.Save(acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := source.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("account count = %d", len(loaded))
	}
	got := loaded[0]
	if got.Email != acct.Email || got.AccessToken != "at" || got.RefreshToken != "rt" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if !got.ExpiresAt.Equal(acct.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, acct.ExpiresAt)
	}

	// No stray temp file left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory entries = %d, want 1", len(entries))
	}
}

func TestFileSourceSaveRequiresID(t *testing.T) {
	t.Parallel()

	source := NewFileSource(t.TempDir())
	if err := source.Save(&Account{Email: "a"}); err == nil {
		t.Fatal("expected an error for an account without an id")
	}
}
