package utils

import (
	"embed"
	"fmt"
	"path"
	"strings"
)

//go:embed prompts/*.md
var promptFS embed.FS

// LoadPrompt returns prompts/<name>.md verbatim.
func LoadPrompt(name string) (string, error) {
	b, err := promptFS.ReadFile(path.Join("prompts", name+".md"))
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	return string(b), nil
}

// LoadPromptWithContext fills {{.Key}} placeholders from vars. Unknown
// placeholders are left as they are.
func LoadPromptWithContext(name string, vars map[string]string) (string, error) {
	text, err := LoadPrompt(name)
	if err != nil {
		return "", err
	}
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{{."+k+"}}", v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(text)), nil
}
