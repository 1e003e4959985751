// Package knowledge assembles the assistant's instruction text from a
// base prompt plus any context documents dropped into a directory. It lets
// operators steer a deployment without rebuilding the binary.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Load returns the base instructions, with every .txt and .md file under
// dir appended as a named context section. Files are applied in name order
// so operators can prefix filenames to control precedence. An empty dir
// returns the base instructions unchanged.
func Load(base, dir string) (string, error) {
	base = strings.TrimSpace(base)
	if dir == "" {
		return base, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return "", fmt.Errorf("knowledge: failed to read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".txt", ".md":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(base)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("knowledge: failed to read %s: %w", name, err)
		}
		body := strings.TrimSpace(string(data))
		if body == "" {
			continue
		}
		title := strings.TrimSuffix(name, filepath.Ext(name))
		b.WriteString("\n\n## ")
		b.WriteString(title)
		b.WriteString("\n")
		b.WriteString(body)
	}
	return b.String(), nil
}
