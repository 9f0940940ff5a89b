package routing

// Document is the routing document served to the reverse proxy's HTTP
// provider.
type Document struct {
	HTTP HTTPConfig `json:"http"`
}

// HTTPConfig holds routers and services keyed by service name. Both maps
// always share the same key set.
type HTTPConfig struct {
	Routers  map[string]Router  `json:"routers"`
	Services map[string]Service `json:"services"`
}

type Router struct {
	Middlewares []string  `json:"middlewares"`
	EntryPoints []string  `json:"entryPoints"`
	Service     string    `json:"service"`
	Rule        string    `json:"rule"`
	TLS         RouterTLS `json:"tls"`
}

type RouterTLS struct {
	CertResolver string `json:"certresolver"`
}

type Service struct {
	LoadBalancer LoadBalancer `json:"loadBalancer"`
}

type LoadBalancer struct {
	Servers []Target `json:"servers"`
}

type Target struct {
	URL string `json:"url"`
}

// RouterNames returns the router keys in sorted order.
func (d Document) RouterNames() []string {
	return sortedNames(d.HTTP.Routers)
}
