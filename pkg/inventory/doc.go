// Package inventory turns the loosely-typed backend-server configuration into
// a normalized model of servers and the services they expose.
//
// The raw configuration is a nested mapping keyed by server name. Each server
// table carries a required "ip" string, an optional "mac" string (ignored),
// and one sub-table per service:
//
//	[server.alpha]
//	ip = "10.0.0.1"
//
//	[server.alpha.grafana]
//	port = 3000
//	authelia = true
//
// Resolution is all-or-nothing: any malformed server or service aborts the
// whole call and no partial model is returned. Servers and services are
// ordered by name so that every consumer of a Model sees the same sequence.
package inventory
