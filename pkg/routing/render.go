package routing

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/evercode/routegen/pkg/inventory"
)

const (
	MiddlewareAuthelia  = "authelia@docker"
	MiddlewareAuthentik = "authentik@file"

	targetScheme = "http"
)

// Params are the projector inputs that do not come from the inventory.
type Params struct {
	// Domain is the base domain appended to each service name in the Host rule.
	Domain       string
	EntryPoint   string
	CertResolver string
}

// Validate reports the first empty parameter.
func (p Params) Validate() error {
	switch {
	case strings.TrimSpace(p.Domain) == "":
		return errors.New("routing params: domain is required")
	case strings.TrimSpace(p.EntryPoint) == "":
		return errors.New("routing params: entry point is required")
	case strings.TrimSpace(p.CertResolver) == "":
		return errors.New("routing params: cert resolver is required")
	}
	return nil
}

// Render projects the model into a routing document. Entries are keyed by
// service name; when two servers expose the same name, the later server in
// model order wins. Run Validate first to reject that case.
func Render(model inventory.Model, p Params) Document {
	doc := Document{HTTP: HTTPConfig{
		Routers:  make(map[string]Router, model.ServiceCount()),
		Services: make(map[string]Service, model.ServiceCount()),
	}}
	for _, srv := range model {
		for _, svc := range srv.Services {
			doc.HTTP.Routers[svc.Name] = Router{
				Middlewares: Middlewares(svc.ServiceRecord),
				EntryPoints: []string{p.EntryPoint},
				Service:     svc.Name,
				Rule:        HostRule(svc.Name, p.Domain),
				TLS:         RouterTLS{CertResolver: p.CertResolver},
			}
			doc.HTTP.Services[svc.Name] = Service{
				LoadBalancer: LoadBalancer{Servers: []Target{{URL: TargetURL(srv.IP, svc.Port)}}},
			}
		}
	}
	return doc
}

// Middlewares returns the access-control chain for a service: at most one
// entry, with authelia checked before authentik.
func Middlewares(rec inventory.ServiceRecord) []string {
	switch {
	case rec.Authelia:
		return []string{MiddlewareAuthelia}
	case rec.Authentik:
		return []string{MiddlewareAuthentik}
	default:
		return []string{}
	}
}

func HostRule(service, domain string) string {
	return fmt.Sprintf("Host(`%s.%s`)", service, domain)
}

// TargetURL always uses plain http; the service's https flag is not
// consulted.
func TargetURL(ip string, port int) string {
	return targetScheme + "://" + ip + ":" + strconv.Itoa(port)
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
