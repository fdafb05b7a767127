// Package scripts embeds the built-in Risor report scripts run by
// "alnav script --report <name>". Each report evaluates to a list.
package scripts

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// FS holds the report scripts under reports/.
//
//go:embed reports/*.risor
var FS embed.FS

// Dir is the directory of the report scripts inside FS.
const Dir = "reports"

// Path returns the FS path of the named report.
func Path(name string) string {
	return path.Join(Dir, name+".risor")
}

// Reports lists the embedded report names in sorted order.
func Reports() []string {
	entries, err := fs.ReadDir(FS, Dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".risor"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
