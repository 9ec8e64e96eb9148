package penenv

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// TargetsFilename is the per-project target list kept next to notes and logs
// in the project base directory.
const TargetsFilename = "targets.txt"

// LoadTargets reads the target list from baseDir. Blank lines and '#'
// comments are skipped. A missing file is an empty list.
func LoadTargets(baseDir string) []string {
	content, err := os.ReadFile(filepath.Join(baseDir, TargetsFilename))
	if err != nil {
		return nil
	}

	var targets []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		targets = append(targets, line)
	}
	return targets
}

// placeholderPattern matches {target}-style placeholders in command lines.
var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// ExpandCommand substitutes placeholder values into a command template and
// returns the expanded command along with any placeholders that had no
// value. Unresolved placeholders are left in place so the user can fill them
// in at the prompt, matching the drawer's behavior for an empty {port}.
func ExpandCommand(command string, vars map[string]string) (string, []string) {
	var unresolved []string
	expanded := placeholderPattern.ReplaceAllStringFunc(command, func(match string) string {
		name := match[1 : len(match)-1]
		if val, ok := vars[name]; ok {
			return val
		}
		unresolved = append(unresolved, name)
		return match
	})
	return expanded, unresolved
}

// HasTargetPlaceholder reports whether the command references {target},
// which decides if the drawer prompts for a target selection.
func HasTargetPlaceholder(command string) bool {
	return strings.Contains(command, "{target}")
}
