package runner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sunfmin/mcp-code-runner/pkg/types"
)

// RunFileCommand is the command the run button triggers.
const RunFileCommand = "coderunner.runFile"

var languages = []types.Language{
	{ID: "c", DisplayName: "C", Extensions: []string{".c"}, Command: `gcc "{file}" -o {name} && ./{name}`},
	{ID: "cpp", DisplayName: "C++", Extensions: []string{".cpp", ".cc", ".cxx"}, Command: `g++ "{file}" -o {name} && ./{name}`},
	{ID: "python", DisplayName: "Python", Extensions: []string{".py"}, Command: `python3 "{file}"`},
	{ID: "java", DisplayName: "Java", Extensions: []string{".java"}, Command: `javac *.java && java {name}`},
	{ID: "javascript", DisplayName: "JavaScript", Extensions: []string{".js", ".mjs"}, Command: `node "{file}"`},
	{ID: "typescript", DisplayName: "TypeScript", Extensions: []string{".ts"}, Command: `npx ts-node "{file}"`},
	{ID: "go", DisplayName: "Go", Extensions: []string{".go"}, Command: `go run "{file}"`},
	{ID: "rust", DisplayName: "Rust", Extensions: []string{".rs"}, Command: `rustc "{file}" -o {name} && ./{name}`},
	{ID: "php", DisplayName: "PHP", Extensions: []string{".php"}, Command: `php "{file}"`},
	{ID: "ruby", DisplayName: "Ruby", Extensions: []string{".rb"}, Command: `ruby "{file}"`},
	{ID: "csharp", DisplayName: "C#", Extensions: []string{".cs"}, Command: `dotnet run`},
	{ID: "dart", DisplayName: "Dart", Extensions: []string{".dart"}, Command: `dart run "{file}"`},
}

func lookup(id string) (types.Language, bool) {
	for _, l := range languages {
		if l.ID == id {
			return l, true
		}
	}
	return types.Language{}, false
}

// Languages returns the supported languages in display order.
func Languages() []types.Language {
	out := make([]types.Language, len(languages))
	copy(out, languages)
	return out
}

// IsSupported reports whether files of the language can be run.
func IsSupported(id string) bool {
	_, ok := lookup(id)
	return ok
}

// DisplayName returns the human name of a language, or the ID itself when unknown.
func DisplayName(id string) string {
	if l, ok := lookup(id); ok {
		return l.DisplayName
	}
	return id
}

// DetectLanguage maps a file extension to a language ID.
func DetectLanguage(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, l := range languages {
		for _, e := range l.Extensions {
			if e == ext {
				return l.ID, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no language for extension %q", ErrUnsupportedLanguage, ext)
}

// RunCommand returns the built-in shell command that runs file.
func RunCommand(id, file string) (string, error) {
	return runCommand(id, file, nil)
}

func runCommand(id, file string, overrides map[string]string) (string, error) {
	l, ok := lookup(id)
	if !ok {
		return "", unsupported(id)
	}

	template := l.Command
	if o, ok := overrides[id]; ok && o != "" {
		template = o
	}

	base := filepath.Base(file)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("{file}", file, "{name}", name).Replace(template), nil
}

// StatusFor returns the run button state for the active file's language.
// An empty ID means there is no active file.
func StatusFor(id string) types.StatusItem {
	item := types.StatusItem{Command: RunFileCommand}
	if !IsSupported(id) {
		return item
	}

	name := DisplayName(id)
	item.Visible = true
	item.Text = fmt.Sprintf("$(play) Run %s", name)
	item.Tooltip = fmt.Sprintf("Run current %s file", name)
	return item
}
