package routing

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/evercode/routegen/pkg/inventory"
)

var testParams = Params{Domain: "example.org", EntryPoint: "websecure", CertResolver: "default"}

func svc(name string, port int, authelia, authentik bool) inventory.Service {
	return inventory.Service{Name: name, ServiceRecord: inventory.ServiceRecord{
		Port:      port,
		Authelia:  authelia,
		Authentik: authentik,
	}}
}

func TestRender_SingleServiceWithAuthelia(t *testing.T) {
	model := inventory.Model{{
		Name:     "serverA",
		IP:       "10.0.0.1",
		Services: []inventory.Service{svc("svcX", 80, true, false)},
	}}

	doc := Render(model, testParams)

	r, ok := doc.HTTP.Routers["svcX"]
	if !ok {
		t.Fatalf("missing router svcX: %+v", doc.HTTP.Routers)
	}
	want := Router{
		Middlewares: []string{"authelia@docker"},
		EntryPoints: []string{"websecure"},
		Service:     "svcX",
		Rule:        "Host(`svcX.example.org`)",
		TLS:         RouterTLS{CertResolver: "default"},
	}
	if !reflect.DeepEqual(r, want) {
		t.Fatalf("router=%+v want=%+v", r, want)
	}
	s, ok := doc.HTTP.Services["svcX"]
	if !ok {
		t.Fatalf("missing service svcX")
	}
	if len(s.LoadBalancer.Servers) != 1 || s.LoadBalancer.Servers[0].URL != "http://10.0.0.1:80" {
		t.Fatalf("unexpected load balancer: %+v", s.LoadBalancer)
	}
}

func TestMiddlewares(t *testing.T) {
	cases := []struct {
		name      string
		authelia  bool
		authentik bool
		want      []string
	}{
		{name: "none", want: []string{}},
		{name: "authelia", authelia: true, want: []string{"authelia@docker"}},
		{name: "authentik", authentik: true, want: []string{"authentik@file"}},
		{name: "both prefers authelia", authelia: true, authentik: true, want: []string{"authelia@docker"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Middlewares(inventory.ServiceRecord{Authelia: tc.authelia, Authentik: tc.authentik})
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Middlewares=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestRender_HTTPSFlagDoesNotChangeScheme(t *testing.T) {
	model := inventory.Model{{
		Name: "a",
		IP:   "10.0.0.1",
		Services: []inventory.Service{{Name: "vault", ServiceRecord: inventory.ServiceRecord{
			Port:         8200,
			HTTPS:        true,
			ExtraDomains: []string{"secrets.example.org"},
		}}},
	}}
	doc := Render(model, testParams)
	if got := doc.HTTP.Services["vault"].LoadBalancer.Servers[0].URL; got != "http://10.0.0.1:8200" {
		t.Fatalf("url=%q", got)
	}
	if got := doc.HTTP.Routers["vault"].Rule; got != "Host(`vault.example.org`)" {
		t.Fatalf("rule=%q", got)
	}
}

func TestRender_RouterAndServiceKeysMatch(t *testing.T) {
	model := inventory.Model{
		{Name: "a", IP: "10.0.0.1", Services: []inventory.Service{svc("one", 1, false, false), svc("two", 2, true, false)}},
		{Name: "b", IP: "10.0.0.2", Services: []inventory.Service{svc("three", 1, false, true), svc("one", 9, false, false)}},
	}
	doc := Render(model, testParams)
	routers := sortedNames(doc.HTTP.Routers)
	services := sortedNames(doc.HTTP.Services)
	if !reflect.DeepEqual(routers, services) {
		t.Fatalf("router keys %v != service keys %v", routers, services)
	}
	if !reflect.DeepEqual(doc.RouterNames(), []string{"one", "three", "two"}) {
		t.Fatalf("RouterNames=%v", doc.RouterNames())
	}
	// Later server in model order wins a name collision.
	if got := doc.HTTP.Services["one"].LoadBalancer.Servers[0].URL; got != "http://10.0.0.2:9" {
		t.Fatalf("collision winner url=%q", got)
	}
}

func TestRender_EmptyModelSerializesEmptyMaps(t *testing.T) {
	b, err := json.Marshal(Render(nil, testParams))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(b); got != `{"http":{"routers":{},"services":{}}}` {
		t.Fatalf("json=%s", got)
	}
}

func TestRender_JSONShapeAndDeterminism(t *testing.T) {
	raw := map[string]any{
		"serverA": map[string]any{
			"ip":   "10.0.0.1",
			"svcX": map[string]any{"port": int64(80), "authelia": true},
			"svcY": map[string]any{"port": int64(81)},
		},
		"serverB": map[string]any{
			"ip":   "10.0.0.2",
			"svcZ": map[string]any{"port": int64(80), "authentik": true},
		},
	}
	var first []byte
	for i := 0; i < 10; i++ {
		model, err := inventory.Resolve(raw)
		if err != nil {
			t.Fatalf("Resolve err=%v", err)
		}
		b, err := json.Marshal(Render(model, testParams))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if first == nil {
			first = b
			continue
		}
		if !bytes.Equal(first, b) {
			t.Fatalf("render not deterministic:\n%s\n%s", first, b)
		}
	}

	want := `{"http":{"routers":{` +
		`"svcX":{"middlewares":["authelia@docker"],"entryPoints":["websecure"],"service":"svcX","rule":"Host(` + "`svcX.example.org`" + `)","tls":{"certresolver":"default"}},` +
		`"svcY":{"middlewares":[],"entryPoints":["websecure"],"service":"svcY","rule":"Host(` + "`svcY.example.org`" + `)","tls":{"certresolver":"default"}},` +
		`"svcZ":{"middlewares":["authentik@file"],"entryPoints":["websecure"],"service":"svcZ","rule":"Host(` + "`svcZ.example.org`" + `)","tls":{"certresolver":"default"}}},` +
		`"services":{` +
		`"svcX":{"loadBalancer":{"servers":[{"url":"http://10.0.0.1:80"}]}},` +
		`"svcY":{"loadBalancer":{"servers":[{"url":"http://10.0.0.1:81"}]}},` +
		`"svcZ":{"loadBalancer":{"servers":[{"url":"http://10.0.0.2:80"}]}}}}}`
	if string(first) != want {
		t.Fatalf("json mismatch\n got=%s\nwant=%s", first, want)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := testParams.Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, p := range []Params{
		{EntryPoint: "web", CertResolver: "le"},
		{Domain: "example.org", CertResolver: "le"},
		{Domain: "example.org", EntryPoint: "web", CertResolver: " "},
	} {
		if err := p.Validate(); err == nil {
			t.Fatalf("expected error for %+v", p)
		}
	}
}
