package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

var loadFallback = sync.OnceValues(func() ([]Field, error) {
	var fields []Field
	if err := yaml.Unmarshal(fallbackYAML, &fields); err != nil {
		return nil, fmt.Errorf("decode fallback schema: %w", err)
	}
	return fields, nil
})

// Fallback returns the fixed field table used when the provider schema cannot
// be fetched or is degraded. Each call returns a fresh Map.
func Fallback() *Map {
	fields, err := loadFallback()
	if err != nil {
		// The table is compiled in; a decode failure is a build defect.
		panic(err)
	}
	return NewMap(fields...)
}
