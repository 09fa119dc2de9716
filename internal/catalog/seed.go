package catalog

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Products []Product `yaml:"products"`
}

// LoadSeedFile reads a YAML catalog of the form `products: [...]`.
func LoadSeedFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]Product, error) {
	var f seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, p := range f.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("seed product %d has no name", i)
		}
		f.Products[i] = Normalize(p)
	}
	return f.Products, nil
}
