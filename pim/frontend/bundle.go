package frontend

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a YAML frontend configuration file, mirroring
// the teacher's LoadPolicyBundle (sim/bundle.go): strict decoding rejects
// unrecognized keys rather than silently ignoring a typo.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading frontend config %q: %w", path, err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing frontend config %q: %w", path, err)
	}
	return cfg, nil
}
