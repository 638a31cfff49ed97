// Package hotfix rewrites a native definition before it is rendered so that
// model deletions cannot be ordered ahead of the operations depending on them.
//
// The rewrite comments out field removals on models that the same definition
// deletes, and moves every model deletion to the end of the operation list in
// reverse declaration order. It is a heuristic for the common case and does
// not resolve multi-level dependency chains.
package hotfix

import (
	"regexp"
	"strings"
)

var (
	deletedModelPattern  = regexp.MustCompile(`(?ms)\s*migrations\.DeleteModel\(.*?name=['"](.*?)['"].*?\),`)
	deleteSectionPattern = regexp.MustCompile(`(?ms)\s*migrations\.DeleteModel\([^)]*?name=['"](.*?)['"][^)]*?\),`)
)

const operationsClose = "\n    ]\n"

// Apply returns the rewritten definition. Definitions without model
// deletions are returned unchanged.
func Apply(src string) string {
	deleted := deletedModelPattern.FindAllStringSubmatch(src, -1)
	if len(deleted) == 0 {
		return src
	}

	code := src
	for _, m := range deleted {
		removal := regexp.MustCompile(`(?ms)\s*migrations\.RemoveField\([^)]*?model_name=['"](` +
			regexp.QuoteMeta(m[1]) + `)['"][^)]*?\),`)
		code = removal.ReplaceAllStringFunc(code, func(s string) string {
			return strings.ReplaceAll(s, "\n", "\n#")
		})
	}

	var sections []string
	code = deleteSectionPattern.ReplaceAllStringFunc(code, func(s string) string {
		sections = append(sections, s)
		return ""
	})

	if i := strings.LastIndex(code, "]"); i >= 0 {
		code = code[:i]
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(code, " \t\r\n\f\v"))
	for i := len(sections) - 1; i >= 0; i-- {
		b.WriteString(sections[i])
	}
	b.WriteString(operationsClose)
	return b.String()
}
