package env

import (
	"os"
	"strings"
)

type Var map[string]string

// Env resolves ${VAR} references in configuration values. Secrets like the
// bot token and store passwords live in the process environment or in the
// config file's [env] table, never inline in committed config.
type Env struct {
	Var Var // variables from configuration (K->V)
	env Var // cached base from OS environment
}

func New() *Env {
	return &Env{
		Var: make(Var),
	}
}

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			v := kv[i+1:]
			if k == "" {
				continue
			}
			base[k] = v
		}
	}
	e.env = base
}

// Set sets a config-scoped variable K=V. Config variables override the OS
// environment during expansion.
func (e *Env) Set(k, v string) {
	if e.Var == nil {
		e.Var = make(Var)
	}
	e.Var[k] = v
}

// Load ingests "K=V" entries, skipping malformed ones.
func (e *Env) Load(entries []string) {
	for _, kv := range entries {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			if k == "" {
				continue
			}
			e.Set(k, kv[i+1:])
		}
	}
}

// Lookup resolves one variable, config values first, then the OS environment.
func (e *Env) Lookup(k string) (string, bool) {
	if v, ok := e.Var[k]; ok {
		return v, true
	}
	if e.env == nil {
		e.FromOS()
	}
	v, ok := e.env[k]
	return v, ok
}

// Expand substitutes every ${VAR} reference in s using Lookup. Unknown
// variables expand to the empty string (simple expansion, no recursion).
func (e *Env) Expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		j := strings.Index(s[i:], "}")
		if j < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		name := s[i+2 : i+j]
		if v, ok := e.Lookup(name); ok {
			b.WriteString(v)
		}
		s = s[i+j+1:]
	}
}
