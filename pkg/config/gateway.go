package config

// Gateway holds the connection settings for the upstream API. It can be
// read from a TOML file and is overridden by command line flags.
type Gateway struct {
	URL           string `toml:"url" json:"url"`
	Email         string `toml:"email" json:"email,omitempty"`
	Password      string `toml:"password" json:"-"`
	APIKey        string `toml:"api_key" json:"-"`
	SessionID     string `toml:"session_id" json:"-"`
	BasicUser     string `toml:"basic_user" json:"basic_user,omitempty"`
	BasicPassword string `toml:"basic_password" json:"-"`
	Timeout       string `toml:"timeout" json:"timeout,omitempty"`
	MaxRetries    int    `toml:"max_retries" json:"max_retries,omitempty"`
}

// Merge fills empty fields of g from other.
func (g Gateway) Merge(other Gateway) Gateway {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	g.URL = pick(g.URL, other.URL)
	g.Email = pick(g.Email, other.Email)
	g.Password = pick(g.Password, other.Password)
	g.APIKey = pick(g.APIKey, other.APIKey)
	g.SessionID = pick(g.SessionID, other.SessionID)
	g.BasicUser = pick(g.BasicUser, other.BasicUser)
	g.BasicPassword = pick(g.BasicPassword, other.BasicPassword)
	g.Timeout = pick(g.Timeout, other.Timeout)
	if g.MaxRetries == 0 {
		g.MaxRetries = other.MaxRetries
	}
	return g
}
