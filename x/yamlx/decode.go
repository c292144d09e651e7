// Package yamlx converts loosely typed bus payloads into typed structs.
package yamlx

import "gopkg.in/yaml.v3"

// Decode fills dst from src. Raw documents ([]byte, string) are parsed
// directly; any other value, typically the generic tree produced by
// decoding a config document, is re-encoded and decoded into dst.
func Decode[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return yaml.Unmarshal(v, dst)
	case string:
		return yaml.Unmarshal([]byte(v), dst)
	default:
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(b, dst)
	}
}
