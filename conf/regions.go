package conf

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v2"
)

//go:embed regions.yaml
var regionsYaml []byte

var (
	regionNames     map[string]string
	regionNamesOnce sync.Once
	regionNamesErr  error
)

// RegionNames returns the region code to display name table.
func RegionNames() (map[string]string, error) {
	regionNamesOnce.Do(func() {
		regionNames, regionNamesErr = ParseRegionNames(regionsYaml)
	})
	return regionNames, regionNamesErr
}

func ParseRegionNames(data []byte) (map[string]string, error) {
	names := make(map[string]string)
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed parse region names, error: %w", err)
	}
	return names, nil
}
