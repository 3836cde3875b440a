package agent

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PromptManager loads the chain prompts from a directory of markdown files.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// chainPrompts are loaded whole, one file per chain.
const (
	plannerPromptFile   = "planner.md"
	evaluatorPromptFile = "evaluator.md"
)

func (pm *PromptManager) PlannerPrompt() (string, error) {
	return pm.load(plannerPromptFile)
}

func (pm *PromptManager) EvaluatorPrompt() (string, error) {
	return pm.load(evaluatorPromptFile)
}

// ResponderPrompt assembles every remaining markdown file in the prompt
// directory: the tutor persona first, then the responder directive, then
// anything else alphabetically. Splitting the persona out lets it be edited
// without touching the response rules.
func (pm *PromptManager) ResponderPrompt() (string, error) {
	files, err := os.ReadDir(pm.Directory)
	if err != nil {
		return "", fmt.Errorf("failed to read prompts directory: %v", err)
	}

	order := map[string]int{
		"persona.md":   1,
		"responder.md": 2,
	}

	sort.Slice(files, func(i, j int) bool {
		oi, okI := order[files[i].Name()]
		oj, okJ := order[files[j].Name()]
		if okI && okJ {
			return oi < oj
		}
		if okI {
			return true
		}
		if okJ {
			return false
		}
		return files[i].Name() < files[j].Name()
	})

	var contents []string
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		if name == plannerPromptFile || name == evaluatorPromptFile {
			continue
		}
		data, err := os.ReadFile(filepath.Join(pm.Directory, name))
		if err != nil {
			log.Printf("Warning: Failed to read prompt file %s: %v", name, err)
			continue
		}
		contents = append(contents, string(data))
	}

	if len(contents) == 0 {
		return "", fmt.Errorf("no responder prompt files found in %s", pm.Directory)
	}

	return strings.Join(contents, "\n\n---\n\n"), nil
}

func (pm *PromptManager) load(name string) (string, error) {
	path := filepath.Join(pm.Directory, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt: %v", strings.TrimSuffix(name, ".md"), err)
	}
	return string(data), nil
}
