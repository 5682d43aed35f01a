package supervisor

import (
	"os"
	"strings"
)

// mergeEnv layers extra KEY=VALUE entries over the inherited environment.
// ${VAR} references in extra values expand against entries already merged,
// so PATH=/opt/bin:${PATH} works. A nil result means inherit untouched.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	vars := make(map[string]string)
	order := make([]string, 0, len(extra)+8)
	set := func(k, v string) {
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = v
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			set(k, v)
		}
	}
	for _, kv := range extra {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		set(k, os.Expand(v, func(name string) string { return vars[name] }))
	}
	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k+"="+vars[k])
	}
	return out
}
