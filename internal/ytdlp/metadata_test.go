package ytdlp

import "testing"

func TestParseVideoInfoFirstDocument(t *testing.T) {
	data := []byte(`{"title":"One","formats":[]}
{"title":"Two","formats":[]}
`)
	info, err := ParseVideoInfo(data)
	if err != nil {
		t.Fatalf("ParseVideoInfo failed: %v", err)
	}
	if info.Title != "One" {
		t.Errorf("expected first document, got %q", info.Title)
	}
}

func TestParseVideoInfoMissingFormats(t *testing.T) {
	info, err := ParseVideoInfo([]byte(`{"title":"Live","duration":null}`))
	if err != nil {
		t.Fatalf("ParseVideoInfo failed: %v", err)
	}
	if info.Duration != nil {
		t.Errorf("expected nil duration, got %v", *info.Duration)
	}
	if info.Formats == nil || len(info.Formats) != 0 {
		t.Errorf("expected empty formats slice, got %v", info.Formats)
	}
}

func TestParseVideoInfoEmpty(t *testing.T) {
	if _, err := ParseVideoInfo(nil); err == nil {
		t.Fatal("expected error for empty output")
	}
}
