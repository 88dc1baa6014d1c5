package configuration

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestByteSizeUnmarshalYAMLAcceptsHumanSizeAndInteger(t *testing.T) {
	var doc struct {
		Human   ByteSize `yaml:"human"`
		Integer ByteSize `yaml:"integer"`
	}
	contents := "human: 1mb\ninteger: 2048\n"
	if err := yaml.Unmarshal([]byte(contents), &doc); err != nil {
		t.Fatalf("unable to unmarshal: %v", err)
	}
	if doc.Human != 1000*1000 {
		t.Errorf("expected 1mb to parse as 1000000 bytes, got %d", doc.Human)
	}
	if doc.Integer != 2048 {
		t.Errorf("expected bare integer to pass through, got %d", doc.Integer)
	}
}

func TestBandwidthConfigurationLimitersNilWhenUnset(t *testing.T) {
	var bandwidth BandwidthConfiguration
	upload, download := bandwidth.Limiters()
	if upload != nil || download != nil {
		t.Error("expected both limiters to be nil for a zero-valued configuration")
	}
}

func TestBandwidthConfigurationLimitersSetWhenConfigured(t *testing.T) {
	bandwidth := BandwidthConfiguration{UploadLimit: 1024, DownloadLimit: 2048}
	upload, download := bandwidth.Limiters()
	if upload == nil || download == nil {
		t.Fatal("expected both limiters to be constructed")
	}
	if upload.Limit() != 1024 {
		t.Errorf("expected upload limit of 1024, got %v", upload.Limit())
	}
	if download.Limit() != 2048 {
		t.Errorf("expected download limit of 2048, got %v", download.Limit())
	}
}
