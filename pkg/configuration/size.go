package configuration

import (
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ByteSize is a uint64 value that supports unmarshalling from both
// human-friendly string representations ("1mb", "500kb") and bare numeric
// byte counts. It can be cast to a uint64 value, where it represents a byte
// count.
type ByteSize uint64

// UnmarshalText implements the text unmarshalling interface, used when a
// ByteSize is decoded from a plain string outside of YAML (for example a
// command-line flag or environment variable).
func (s *ByteSize) UnmarshalText(textBytes []byte) error {
	value, err := humanize.ParseBytes(string(textBytes))
	if err != nil {
		return err
	}
	*s = ByteSize(value)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler, accepting either a bare integer
// node or a human-friendly size string.
func (s *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var asUint64 uint64
	if err := value.Decode(&asUint64); err == nil {
		*s = ByteSize(asUint64)
		return nil
	}

	var asString string
	if err := value.Decode(&asString); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(asString))
}
