package options

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/gateway"
	"github.com/workbook-tools/collection-migrator/pkg/util"
)

// GatewayOptions holds options related to the upstream API
type GatewayOptions struct {
	// ConfigFile is an optional TOML file; flags override its values.
	ConfigFile string
	config.Gateway

	Client gateway.Client
}

// RegisterGatewayFlags adds the flags configuring the upstream connection.
func RegisterGatewayFlags(flags *pflag.FlagSet, o *GatewayOptions) {
	flags.StringVar(&o.ConfigFile, "gateway-config", "", "path to a TOML file with the connection settings")
	flags.StringVar(&o.URL, "url", "", "base url of the workbook server")
	flags.StringVar(&o.Email, "email", "", "login email")
	flags.StringVar(&o.Password, "password", "", "login password")
	flags.StringVar(&o.APIKey, "api-key", "", "API key, preferred over email and password")
	flags.StringVar(&o.SessionID, "session", "", "existing session id")
	flags.StringVar(&o.BasicUser, "basic-user", "", "user for HTTP basic auth in front of the server")
	flags.StringVar(&o.BasicPassword, "basic-password", "", "password for HTTP basic auth in front of the server")
	flags.StringVar(&o.Timeout, "timeout", "", "timeout of each request (default: 2m)")
	flags.IntVar(&o.MaxRetries, "max-retries", 0, "retries of idempotent requests on network errors (default: 3)")
}

// Complete builds the gateway client unless one was set directly.
func (o *GatewayOptions) Complete() error {
	if o.Client != nil {
		log.Debug().Msg("gateway client already configured, skipping gateway option validation")
		return nil
	}
	cfg := o.Gateway
	if o.ConfigFile != "" {
		file, err := LoadGatewayFile(o.ConfigFile)
		if err != nil {
			return err
		}
		cfg = cfg.Merge(file)
	}
	log.Info().EmbedObject(util.LoggedGatewayConfig{Gateway: cfg}).Msg("configuring gateway")
	client, err := gateway.NewHTTPClient(cfg)
	if err != nil {
		return err
	}
	o.Gateway = cfg
	o.Client = client
	return nil
}

// LoadGatewayFile reads gateway settings from a TOML file. Unknown keys are
// rejected.
func LoadGatewayFile(path string) (config.Gateway, error) {
	var cfg config.Gateway
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read gateway config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("%w: parse gateway config %s: %v", errdefs.ErrConfiguration, path, err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%w: unknown gateway config keys: %s", errdefs.ErrConfiguration, strings.Join(keys, ", "))
	}
	return cfg, nil
}
