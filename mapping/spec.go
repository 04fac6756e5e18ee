package mapping

import (
	"strings"
)

// Spec is a processor or aggregation strategy reference in the form
// `name` or `name:params`.
type Spec struct {
	Name      string
	Params    string
	HasParams bool
}

// ParseSpec splits on the first ':' only; everything after it belongs to
// the parameters.
func ParseSpec(s string) Spec {
	name, params, found := strings.Cut(s, ":")
	return Spec{Name: strings.TrimSpace(name), Params: params, HasParams: found}
}

// ParseSpecs parses each entry in order.
func ParseSpecs(specs []string) []Spec {
	result := make([]Spec, 0, len(specs))
	for _, s := range specs {
		result = append(result, ParseSpec(s))
	}
	return result
}

func (s Spec) String() string {
	if s.HasParams {
		return s.Name + ":" + s.Params
	}
	return s.Name
}

func (s Spec) key() string {
	return normalizeName(s.Name)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// params gives uniform access to both parameter conventions: positional
// `a,b,c` and named `k=v;k2=v2`.
type params struct {
	raw        string
	positional []string
	named      map[string]string
}

func parseParams(raw string) params {
	p := params{raw: raw}
	if raw == "" {
		return p
	}
	if strings.Contains(raw, "=") {
		p.named = make(map[string]string)
		for _, pair := range strings.Split(raw, ";") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			p.named[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
		return p
	}
	for _, part := range strings.Split(raw, ",") {
		p.positional = append(p.positional, strings.TrimSpace(part))
	}
	return p
}

// lookup returns the named value for key, falling back to position i.
func (p params) lookup(i int, key string) (string, bool) {
	if p.named != nil {
		v, ok := p.named[strings.ToLower(key)]
		return v, ok && v != ""
	}
	if i < len(p.positional) && p.positional[i] != "" {
		return p.positional[i], true
	}
	return "", false
}

func (p params) count() int {
	if p.named != nil {
		return len(p.named)
	}
	return len(p.positional)
}
