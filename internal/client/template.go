package client

import (
	"fmt"
	"strings"
)

// expandTemplate implements the URI-Template subset HyprCAT affordances
// use: positional "{x}" substitution and query-form "{?x}"/"{?x,y,z}"
// comma-group expansion. Variables missing from vars are elided rather
// than left as literal braces.
func expandTemplate(template string, vars map[string]interface{}) string {
	var out strings.Builder
	i := 0
	for i < len(template) {
		if template[i] != '{' {
			out.WriteByte(template[i])
			i++
			continue
		}
		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			out.WriteString(template[i:])
			break
		}
		expr := template[i+1 : i+end]
		i += end + 1

		if strings.HasPrefix(expr, "?") {
			out.WriteString(expandQueryForm(expr[1:], vars))
			continue
		}
		if v, ok := vars[expr]; ok {
			out.WriteString(fmt.Sprint(v))
		}
	}
	return out.String()
}

func expandQueryForm(names string, vars map[string]interface{}) string {
	var pairs []string
	for _, name := range strings.Split(names, ",") {
		v, ok := vars[name]
		if !ok {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", name, v))
	}
	if len(pairs) == 0 {
		return ""
	}
	return "?" + strings.Join(pairs, "&")
}
