package config

import "testing"

func TestParseINIBasic(t *testing.T) {
	data := []byte("pgdata = /data\n# comment\nbackup-mode=page\n\nkeep-data-generations = 3\n")
	res, err := ParseINI(data)
	if err != nil {
		t.Fatalf("ParseINI: %v", err)
	}
	if res.Values["pgdata"] != "/data" {
		t.Fatalf("pgdata = %q, want /data", res.Values["pgdata"])
	}
	if res.Values["backup-mode"] != "page" {
		t.Fatalf("backup-mode = %q, want page", res.Values["backup-mode"])
	}
	if res.Values["keep-data-generations"] != "3" {
		t.Fatalf("keep-data-generations = %q, want 3", res.Values["keep-data-generations"])
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestParseINIRejectsUnknownKey(t *testing.T) {
	_, err := ParseINI([]byte("bogus-option = 1\n"))
	if err == nil {
		t.Fatalf("ParseINI: expected error for unknown key")
	}
}

func TestParseINIRejectsBadInteger(t *testing.T) {
	_, err := ParseINI([]byte("keep-data-generations=TRUE\n"))
	if err == nil {
		t.Fatalf("ParseINI: expected error for non-integer value")
	}
	want := "should be a 32bit signed integer: 'TRUE'"
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestParseINIWarnsOnMissingEquals(t *testing.T) {
	res, err := ParseINI([]byte("not a key value line\n"))
	if err != nil {
		t.Fatalf("ParseINI: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want 1 entry", res.Warnings)
	}
}

func TestApplyMergesIntoOptions(t *testing.T) {
	opts := Default()
	values := map[string]string{
		"backup-mode": "page",
		"check":       "true",
	}
	if err := Apply(values, &opts); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if opts.BackupMode != "page" {
		t.Fatalf("BackupMode = %q, want page", opts.BackupMode)
	}
	if !opts.Check {
		t.Fatalf("Check = false, want true")
	}
}
