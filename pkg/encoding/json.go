package encoding

import "encoding/json"

// LoadAndUnmarshalJSON loads data from path and decodes it as JSON into
// value. Used for the archive manifest (/dat.json) and ArchiveMeta records.
func LoadAndUnmarshalJSON(path string, value interface{}) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		return json.Unmarshal(data, value)
	})
}

// MarshalAndSaveJSON marshals value as indented JSON and atomically saves it
// to path.
func MarshalAndSaveJSON(path string, value interface{}) error {
	return MarshalAndSave(path, func() ([]byte, error) {
		return json.MarshalIndent(value, "", "  ")
	})
}
