package encoding

import "gopkg.in/yaml.v3"

// LoadAndUnmarshalYAML loads data from path and decodes it as YAML into
// value. Used for the daemon's own configuration file.
func LoadAndUnmarshalYAML(path string, value interface{}) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		return yaml.Unmarshal(data, value)
	})
}

// MarshalAndSaveYAML marshals value as YAML and atomically saves it to path.
func MarshalAndSaveYAML(path string, value interface{}) error {
	return MarshalAndSave(path, func() ([]byte, error) {
		return yaml.Marshal(value)
	})
}
