package models

import "strings"

// Resolve maps a client-requested model through the routing tables in order;
// the first hit wins and a miss returns the input unchanged. Lookups ignore
// surrounding whitespace but are otherwise exact.
func Resolve(model string, tables ...map[string]string) string {
	name := strings.TrimSpace(model)
	if name == "" {
		return model
	}
	for _, table := range tables {
		if table == nil {
			continue
		}
		if mapped, ok := table[name]; ok && mapped != "" {
			return mapped
		}
	}
	return name
}
