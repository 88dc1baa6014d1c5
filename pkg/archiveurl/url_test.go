package archiveurl

import "testing"

func TestParseHexHost(t *testing.T) {
	key := "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"[:64]
	u, err := Parse("dat://" + key + "/path/to/file.json?q=1#frag")
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != key {
		t.Errorf("Host = %q, want %q", u.Host, key)
	}
	if !u.IsHexKey() {
		t.Error("IsHexKey() = false, want true")
	}
	if u.Path != "path/to/file.json" {
		t.Errorf("Path = %q", u.Path)
	}
	if u.Query != "q=1" {
		t.Errorf("Query = %q", u.Query)
	}
	if u.Fragment != "frag" {
		t.Errorf("Fragment = %q", u.Fragment)
	}
}

func TestParseVersionSelector(t *testing.T) {
	cases := []struct {
		host    string
		version string
	}{
		{"example.com+latest", VersionLatest},
		{"example.com+preview", VersionPreview},
		{"example.com+42", "42"},
	}
	for _, c := range cases {
		u, err := Parse("dat://" + c.host)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.host, err)
		}
		if u.Version != c.version {
			t.Errorf("Parse(%q).Version = %q, want %q", c.host, u.Version, c.version)
		}
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	_, err := Parse("dat://example.com+notanumber")
	if err == nil {
		t.Fatal("expected an error for an invalid version selector")
	}
}

func TestParseRejectsWrongScheme(t *testing.T) {
	_, err := Parse("https://example.com")
	if err == nil {
		t.Fatal("expected an error for a non-dat scheme")
	}
}

func TestStringRoundTrip(t *testing.T) {
	raw := "dat://example.com+latest/a/b?q=1#f"
	u, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := u.String(); got != raw {
		t.Errorf("String() = %q, want %q", got, raw)
	}
}
