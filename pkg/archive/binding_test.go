package archive

import "testing"

func TestDeriveBindingTable(t *testing.T) {
	const datPath = "/home/user/.dhive"
	const hexKey = "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"

	cases := []struct {
		name     string
		settings UserSettings
		writable bool
		wantNil  bool
		wantAuto bool
		wantPath string
	}{
		{
			name:     "unsaved archive has no binding",
			settings: UserSettings{IsSaved: false, LocalSyncPath: "/tmp/x"},
			writable: true,
			wantNil:  true,
		},
		{
			name:     "non-writable archive has no binding",
			settings: UserSettings{IsSaved: true, LocalSyncPath: "/tmp/x"},
			writable: false,
			wantNil:  true,
		},
		{
			name:     "explicit path, publish mode",
			settings: UserSettings{IsSaved: true, LocalSyncPath: "/tmp/x", PreviewMode: false},
			writable: true,
			wantAuto: true,
			wantPath: "/tmp/x",
		},
		{
			name:     "explicit path, preview mode",
			settings: UserSettings{IsSaved: true, LocalSyncPath: "/tmp/x", PreviewMode: true},
			writable: true,
			wantAuto: false,
			wantPath: "/tmp/x",
		},
		{
			name:     "no path, preview mode uses internal path",
			settings: UserSettings{IsSaved: true, PreviewMode: true},
			writable: true,
			wantAuto: false,
		},
		{
			name:     "no path, publish mode has no binding",
			settings: UserSettings{IsSaved: true, PreviewMode: false},
			writable: true,
			wantNil:  true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			binding := DeriveBinding(c.settings, c.writable, datPath, hexKey)
			if c.wantNil {
				if binding != nil {
					t.Fatalf("expected nil binding, got %+v", binding)
				}
				return
			}
			if binding == nil {
				t.Fatal("expected a binding, got nil")
			}
			if binding.AutoPublish != c.wantAuto {
				t.Errorf("AutoPublish = %v, want %v", binding.AutoPublish, c.wantAuto)
			}
			if c.wantPath != "" && binding.Path != c.wantPath {
				t.Errorf("Path = %q, want %q", binding.Path, c.wantPath)
			}
		})
	}
}

func TestDeriveBindingInternalPathIsUsingInternal(t *testing.T) {
	settings := UserSettings{IsSaved: true, PreviewMode: true}
	hexKey := "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"
	binding := DeriveBinding(settings, true, "/home/user/.dhive", hexKey)
	if binding == nil {
		t.Fatal("expected a binding")
	}
	if !binding.IsUsingInternal {
		t.Error("expected IsUsingInternal to be true for an internal sync path")
	}
}

func TestMergeManifestsFolderWins(t *testing.T) {
	archiveManifest := &Manifest{Title: "from archive", Description: "archive desc"}
	folderManifest := &Manifest{Title: "from folder"}

	merged := MergeManifests(archiveManifest, folderManifest)
	if merged.Title != "from folder" {
		t.Errorf("Title = %q, want folder value", merged.Title)
	}
	if merged.Description != "archive desc" {
		t.Errorf("Description = %q, want archive value preserved", merged.Description)
	}
}
