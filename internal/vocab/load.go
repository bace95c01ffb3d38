package vocab

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// overlay mirrors the YAML vocabulary file shape. Present tables extend
// the defaults; absent tables leave the defaults untouched.
type overlay struct {
	Sockets     []string          `yaml:"sockets"`
	Chipsets    map[string]string `yaml:"chipsets"`
	MemoryTypes []string          `yaml:"memory_types"`
	FormFactors map[string]string `yaml:"form_factors"`
	Models      []ModelSpec       `yaml:"models"`
}

// Load builds the vocabulary from the built-in defaults plus an optional
// YAML overlay file. An empty path returns the defaults.
func Load(path string) (*Vocabulary, error) {
	v := Default()
	if path == "" {
		return v, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vocab: read %s", path)
	}

	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, eris.Wrapf(err, "vocab: parse %s", path)
	}

	v.Sockets = append(v.Sockets, o.Sockets...)
	for c, s := range o.Chipsets {
		if v.ChipsetMap == nil {
			v.ChipsetMap = map[string]string{}
		}
		v.ChipsetMap[c] = s
	}
	v.MemoryTypes = append(v.MemoryTypes, o.MemoryTypes...)
	for alias, canon := range o.FormFactors {
		v.FormFactors[alias] = canon
	}
	v.Models = append(v.Models, o.Models...)

	v.build()
	return v, nil
}
