package inventory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

const (
	keyIP  = "ip"
	keyMAC = "mac"

	minPort = 1
	maxPort = 65535
)

var reservedKeys = map[string]struct{}{
	keyIP:  {},
	keyMAC: {},
}

// serviceShape mirrors ServiceRecord with Port as a pointer so a missing
// port can be told apart from port 0.
type serviceShape struct {
	Port         *int     `toml:"port"`
	Authelia     bool     `toml:"authelia"`
	Authentik    bool     `toml:"authentik"`
	HTTPS        bool     `toml:"https"`
	ExtraDomains []string `toml:"extra_domains"`
}

// Resolve builds a Model from the raw server mapping (the contents of the
// top-level "server" table).
func Resolve(raw map[string]any) (Model, error) {
	names := sortedKeys(raw)
	model := make(Model, 0, len(names))
	for _, name := range names {
		srv, err := resolveServer(name, raw[name])
		if err != nil {
			return nil, err
		}
		model = append(model, srv)
	}
	return model, nil
}

func resolveServer(name string, v any) (Server, error) {
	table, ok := v.(map[string]any)
	if !ok {
		return Server{}, &MissingFieldError{Server: name, Field: keyIP}
	}
	ip, ok := table[keyIP].(string)
	if !ok {
		return Server{}, &MissingFieldError{Server: name, Field: keyIP}
	}

	keys := sortedKeys(table)
	services := make([]Service, 0, len(keys))
	for _, key := range keys {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		rec, err := decodeService(table[key])
		if err != nil {
			return Server{}, &InvalidServiceShapeError{Server: name, Service: key, Err: err}
		}
		services = append(services, Service{Name: key, ServiceRecord: rec})
	}
	return Server{Name: name, IP: ip, Services: services}, nil
}

// decodeService round-trips the service table through TOML so the field
// rules (types, defaults) are the same ones a file decode would apply.
func decodeService(v any) (ServiceRecord, error) {
	table, ok := v.(map[string]any)
	if !ok {
		return ServiceRecord{}, fmt.Errorf("expected a table, got %T", v)
	}
	b, err := toml.Marshal(table)
	if err != nil {
		return ServiceRecord{}, err
	}
	var shape serviceShape
	if err := toml.Unmarshal(b, &shape); err != nil {
		return ServiceRecord{}, err
	}
	if shape.Port == nil {
		return ServiceRecord{}, errors.New(`missing field "port"`)
	}
	if *shape.Port < minPort || *shape.Port > maxPort {
		return ServiceRecord{}, fmt.Errorf("port %d out of range %d..%d", *shape.Port, minPort, maxPort)
	}
	return ServiceRecord{
		Port:         *shape.Port,
		Authelia:     shape.Authelia,
		Authentik:    shape.Authentik,
		HTTPS:        shape.HTTPS,
		ExtraDomains: append([]string{}, shape.ExtraDomains...),
	}, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
