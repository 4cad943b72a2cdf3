package options

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"sigs.k8s.io/yaml"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
)

// DictionaryOptions holds the label dictionary file
type DictionaryOptions struct {
	DictionaryFile string

	Dictionary *config.Dictionary
}

// Complete loads the dictionary file, if any. YAML and JSON are accepted.
func (o *DictionaryOptions) Complete() error {
	if o.Dictionary != nil || o.DictionaryFile == "" {
		return nil
	}
	data, err := os.ReadFile(o.DictionaryFile)
	if err != nil {
		return err
	}
	var d config.Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("%w: dictionary %s: %v", errdefs.ErrConfiguration, o.DictionaryFile, err)
	}
	if len(d.Labels) == 0 {
		return fmt.Errorf("%w: dictionary %s has no labels", errdefs.ErrConfiguration, o.DictionaryFile)
	}
	log.Info().Str("file", o.DictionaryFile).Str("language", d.Language).Int("labels", len(d.Labels)).Msg("loaded dictionary")
	o.Dictionary = &d
	return nil
}
