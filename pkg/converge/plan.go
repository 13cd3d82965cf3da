package converge

import (
	"fmt"
	"os"
	"strings"

	"github.com/clusterops/nodectl/pkg/render"
)

// FileWrite is one pending configuration write.
type FileWrite struct {
	Path    string
	Content string
	Mode    os.FileMode
}

// Plan is the ordered set of writes that converges the node, plus whether
// the runtime service must restart afterwards. Plans are built per node per
// run and discarded after apply.
type Plan struct {
	Node            string
	Writes          []FileWrite
	RestartRequired bool
}

// Empty reports whether the plan has nothing to do.
func (p Plan) Empty() bool {
	return len(p.Writes) == 0
}

// Converge diffs the rendered config against the node's current config file
// and produces the plan. The diff is line-based: any changed, added or
// removed line schedules a rewrite of the whole file and a service restart.
func (e *Engine) Converge(cfg render.Config) (Plan, error) {
	plan := Plan{Node: e.Node}

	currentLines, err := readLines(e.ConfigPath)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to read %q: %w", e.ConfigPath, err)
	}

	desiredLines := cfg.FileLines()
	if linesEqual(currentLines, desiredLines) {
		return plan, nil
	}

	plan.Writes = append(plan.Writes, FileWrite{
		Path:    e.ConfigPath,
		Content: strings.Join(desiredLines, "\n") + "\n",
		Mode:    0o644,
	})
	plan.RestartRequired = true
	return plan, nil
}

// readLines returns the file's lines, or nil when the file is absent.
func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	content := strings.TrimSuffix(string(raw), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
