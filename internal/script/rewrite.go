// Package script rewrites text held in decoded script assets: command lines,
// conditional expressions and any other string field, including those inside
// [SerializeReference] payloads.
package script

import (
	"errors"
	"sort"
	"strings"
)

var ErrEmptyFind = errors.New("script: rule has an empty search string")

type Rule struct {
	Find    string
	Replace string
}

// Rules pairs up find and replace lists; the shorter list decides the count.
func Rules(find, replace []string) ([]Rule, error) {
	n := min(len(find), len(replace))
	rules := make([]Rule, 0, n)
	for i := 0; i < n; i++ {
		if find[i] == "" {
			return nil, ErrEmptyFind
		}
		rules = append(rules, Rule{Find: find[i], Replace: replace[i]})
	}
	return rules, nil
}

// Rewrite applies every rule to every string in v, in place, and returns the
// number of replaced occurrences. Rules run in order, each on the output of
// the previous one.
func Rewrite(v any, rules []Rule) (int, error) {
	for _, r := range rules {
		if r.Find == "" {
			return 0, ErrEmptyFind
		}
	}
	n := 0
	walk(v, func(s string) (string, bool) {
		changed := false
		for _, r := range rules {
			if c := strings.Count(s, r.Find); c > 0 {
				s = strings.ReplaceAll(s, r.Find, r.Replace)
				n += c
				changed = true
			}
		}
		return s, changed
	})
	return n, nil
}

// Contains reports whether any string in v contains s.
func Contains(v any, s string) bool {
	found := false
	walk(v, func(x string) (string, bool) {
		if strings.Contains(x, s) {
			found = true
		}
		return x, false
	})
	return found
}

// Strings lists the text strings of v in traversal order, with map keys
// sorted. Asset names and reference type names are left out.
func Strings(v any) []string {
	var out []string
	walk(v, func(s string) (string, bool) {
		out = append(out, s)
		return s, false
	})
	return out
}

// walk visits the text strings of v. m_Name and the type triple of
// ReferencedObject entries identify objects and are never visited.
func walk(v any, fn func(string) (string, bool)) {
	switch x := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(x) {
			if k == "m_Name" || k == "type" && isReferencedObject(x) {
				continue
			}
			if s, ok := x[k].(string); ok {
				if ns, changed := fn(s); changed {
					x[k] = ns
				}
				continue
			}
			walk(x[k], fn)
		}
	case []any:
		for i, item := range x {
			if s, ok := item.(string); ok {
				if ns, changed := fn(s); changed {
					x[i] = ns
				}
				continue
			}
			walk(item, fn)
		}
	}
}

func isReferencedObject(m map[string]any) bool {
	_, rid := m["rid"]
	_, data := m["data"]
	return rid && data
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
