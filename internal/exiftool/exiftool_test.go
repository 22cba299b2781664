package exiftool

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitReadyToken(t *testing.T) {
	tool := &Tool{config: defaults()}
	tool.config.readyToken = []byte("{ready}\n")
	tool.config.readyTokenLength = len(tool.config.readyToken)

	in := "first response\n{ready}\nsecond response\n{ready}\n"
	sc := bufio.NewScanner(strings.NewReader(in))
	sc.Split(tool.splitReadyToken)

	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("%d tokens: %v", len(got), got)
	}
	if got[0] != "first response\n" || got[1] != "second response\n" {
		t.Errorf("tokens = %q", got)
	}
}

func TestSplitReadyTokenTruncatedStream(t *testing.T) {
	tool := &Tool{config: defaults()}
	tool.config.readyToken = []byte("{ready}\n")
	tool.config.readyTokenLength = len(tool.config.readyToken)

	sc := bufio.NewScanner(strings.NewReader("partial output without token"))
	sc.Split(tool.splitReadyToken)

	if sc.Scan() {
		t.Error("truncated stream must not yield a token")
	}
	if sc.Err() == nil {
		t.Error("expected an error for a missing final token")
	}
}

func TestParseSnapshots(t *testing.T) {
	payload := []byte(`[
		{"SourceFile": "a.jpg", "EXIF:DateTimeOriginal": "2023:05:17 09:30:03",
		 "EXIF:GPSLatitude": 41.7485, "Composite:FlashFired": false},
		{"SourceFile": "b.jpg", "EXIF:ISO": 200}
	]`)
	snaps, err := parseSnapshots(payload, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("%d snapshots", len(snaps))
	}
	if got := snaps[0]["EXIF:DateTimeOriginal"]; got != "2023:05:17 09:30:03" {
		t.Errorf("string value %q", got)
	}
	if got := snaps[0]["EXIF:GPSLatitude"]; got != "41.7485" {
		t.Errorf("numeric value %q", got)
	}
	if got := snaps[0]["Composite:FlashFired"]; got != "false" {
		t.Errorf("bool value %q", got)
	}
	if got := snaps[1]["EXIF:ISO"]; got != "200" {
		t.Errorf("integer value %q", got)
	}
}

func TestParseSnapshotsCountMismatch(t *testing.T) {
	_, err := parseSnapshots([]byte(`[{"SourceFile": "a.jpg"}]`), 2)
	var mismatch *CountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected CountMismatchError, got %v", err)
	}
	if mismatch.Want != 2 || mismatch.Got != 1 {
		t.Errorf("mismatch = %+v", mismatch)
	}
}

func TestParseSnapshotsBadJSON(t *testing.T) {
	if _, err := parseSnapshots([]byte("Error: not a media file"), 1); err == nil {
		t.Error("expected an error for non-JSON output")
	}
}

func TestCheckPaths(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := checkPaths([]string{present}); err != nil {
		t.Errorf("existing path: %v", err)
	}

	missing := filepath.Join(dir, "gone.jpg")
	err := checkPaths([]string{present, missing})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Path != missing {
		t.Errorf("Path = %q", notFound.Path)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"text", "text"},
		{float64(200), "200"},
		{41.7485, "41.7485"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := stringify(tt.in); got != tt.want {
			t.Errorf("stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestErrorLine(t *testing.T) {
	tests := []struct {
		name   string
		out    string
		failed bool
	}{
		{"success", "    1 image files updated\n", false},
		{"error line", "Error: Not a valid JPG (looks more like a PNG) - a.jpg\n", true},
		{"indented error line", "  Error: File not found - gone.jpg\n", true},
		{"word in a path", "    1 image files updated - /photos/ErrorCorrection/a.jpg\n", false},
		{"word in a value", "Writer: DaError - 1 image files updated\n", false},
		{"warning only", "Warning: Bad format for EXIF data - a.jpg\n    1 image files updated\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, failed := errorLine([]byte(tt.out))
			if failed != tt.failed {
				t.Errorf("errorLine(%q) = %q, %v", tt.out, line, failed)
			}
		})
	}
}

func TestWriteNoDirectivesIsNoop(t *testing.T) {
	tool := &Tool{config: defaults()}
	// No process behind the handle; an empty directive list must return
	// before any I/O happens.
	if err := tool.Write(nil, []string{"a.jpg"}, true); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultsExtractArgs(t *testing.T) {
	c := defaults()
	joined := strings.Join(c.dataExtractArgs, " ")
	for _, want := range []string{"-json", "-G", "-extractEmbedded"} {
		if !strings.Contains(joined, want) {
			t.Errorf("extract args %v missing %s", c.dataExtractArgs, want)
		}
	}
	if !bytes.HasPrefix(c.readyToken, []byte("{ready}")) {
		t.Errorf("ready token %q", c.readyToken)
	}
}
