package options

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
)

//go:embed personalization.schema.json
var personalizationSchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("personalization.json", bytes.NewReader(personalizationSchema)); err != nil {
			compileErr = fmt.Errorf("load personalization schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("personalization.json")
	})
	return compiled, compileErr
}

// PersonalizationOptions holds the personalization file
type PersonalizationOptions struct {
	PersonalizationFile string

	Personalization *config.Personalization
}

// Complete loads and validates the personalization file, if any.
func (o *PersonalizationOptions) Complete() error {
	if o.Personalization != nil {
		log.Debug().Msg("personalization already set, skipping personalization file")
		return nil
	}
	if o.PersonalizationFile == "" {
		o.Personalization = &config.Personalization{}
		return nil
	}
	data, err := os.ReadFile(o.PersonalizationFile)
	if err != nil {
		return err
	}
	p, err := ParsePersonalization(data)
	if err != nil {
		return fmt.Errorf("%s: %w", o.PersonalizationFile, err)
	}
	log.Info().
		Str("file", o.PersonalizationFile).
		Str("language", p.Language).
		Int("replacements", len(p.FieldsReplacements)).
		Msg("loaded personalization")
	o.Personalization = p
	return nil
}

// ParsePersonalization validates a personalization document against its
// schema and decodes it.
func ParsePersonalization(data []byte) (*config.Personalization, error) {
	sch, err := schema()
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: personalization is not JSON: %v", errdefs.ErrConfiguration, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: personalization: %v", errdefs.ErrConfiguration, err)
	}
	var p config.Personalization
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: personalization: %v", errdefs.ErrConfiguration, err)
	}
	return &p, nil
}
