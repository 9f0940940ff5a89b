package inventory

// ServiceRecord holds the typed attributes of one service.
type ServiceRecord struct {
	Port int `toml:"port"`

	// Authelia wins over Authentik when both are set.
	Authelia  bool `toml:"authelia"`
	Authentik bool `toml:"authentik"`

	// HTTPS and ExtraDomains are carried through the model but are not
	// projected into the routing document yet.
	HTTPS        bool     `toml:"https"`
	ExtraDomains []string `toml:"extra_domains"`
}

// Service is a named ServiceRecord. Names are unique within one server.
type Service struct {
	Name string
	ServiceRecord
}

// Server is one backend host and the services it exposes.
type Server struct {
	Name     string
	IP       string
	Services []Service
}

// Model is the normalized configuration. It is built fresh by Resolve and
// must not be mutated afterwards; share it read-only.
type Model []Server

// ServiceCount returns the number of services across all servers.
func (m Model) ServiceCount() int {
	n := 0
	for _, s := range m {
		n += len(s.Services)
	}
	return n
}
