package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RuleSet é o conjunto imutável de regras carregado na inicialização.
//
// Match procura primeiro por igualdade exata de path e depois por template:
// um segmento "{nome}" casa com qualquer segmento e um "*" final casa com o resto.
type RuleSet struct {
	exact     map[string]*Rule
	templates []*Rule
	all       []*Rule
}

func NewRuleSet(rules ...*Rule) (*RuleSet, error) {
	rs := &RuleSet{exact: make(map[string]*Rule, len(rules))}
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r == nil {
			continue
		}
		id := r.ID()
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, id)
		}
		seen[id] = struct{}{}
		rs.all = append(rs.all, r)
		if isTemplate(r.Path()) {
			rs.templates = append(rs.templates, r)
		} else {
			rs.exact[id] = r
		}
	}
	sort.Slice(rs.all, func(i, j int) bool {
		if rs.all[i].Path() != rs.all[j].Path() {
			return rs.all[i].Path() < rs.all[j].Path()
		}
		return rs.all[i].Method() < rs.all[j].Method()
	})
	return rs, nil
}

// Match resolve a regra para um método + path de requisição.
func (rs *RuleSet) Match(method, path string) (*Rule, bool) {
	if rs == nil {
		return nil, false
	}
	m := Method(strings.ToUpper(strings.TrimSpace(method)))
	path = normalizePath(path)
	if r, ok := rs.exact[string(m)+" "+path]; ok {
		return r, true
	}
	for _, r := range rs.templates {
		if r.Method() == m && matchTemplate(r.Path(), path) {
			return r, true
		}
	}
	return nil, false
}

// Rules retorna as regras ordenadas por path e método.
func (rs *RuleSet) Rules() []*Rule {
	if rs == nil {
		return nil
	}
	out := make([]*Rule, len(rs.all))
	copy(out, rs.all)
	return out
}

func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.all)
}

func isTemplate(path string) bool {
	return strings.Contains(path, "{") || strings.HasSuffix(path, "*")
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func matchTemplate(tpl, path string) bool {
	ts := strings.Split(strings.Trim(tpl, "/"), "/")
	ps := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range ts {
		if seg == "*" && i == len(ts)-1 {
			return len(ps) >= i
		}
		if i >= len(ps) {
			return false
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if seg != ps[i] {
			return false
		}
	}
	return len(ts) == len(ps)
}
