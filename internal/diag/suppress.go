package diag

import "strings"

// IsSuppressed reports whether a record classified as (typ, subtype)
// matches any rule in rules.
//
// A rule is a dotted pattern: "t" or "t.*" matches every subtype under t,
// "t.s" matches exactly that pair. Records without a type never match.
func IsSuppressed(typ, subtype string, rules []string) bool {
	if typ == "" {
		return false
	}
	for _, rule := range rules {
		ruleType, ruleSubtype, ok := strings.Cut(rule, ".")
		if ruleSubtype == "*" {
			ruleSubtype = ""
			ok = false
		}
		if ruleType != typ {
			continue
		}
		if !ok || ruleSubtype == subtype {
			return true
		}
	}
	return false
}
