package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "ghnb/internal/"

var layers = []string{"adapter/in", "adapter/out", "usecase", "service", "domain", "port/in", "port/out", "dto"}

// importRule returns a reason when file (slash path under internal/) may not import target.
type importRule func(file, target string) string

func TestInternalImports(t *testing.T) {
	t.Parallel()
	rules := map[string]importRule{
		"modules":  moduleRule,
		"platform": platformRule,
		"ui":       uiRule,
	}
	for dir, rule := range rules {
		t.Run(dir, func(t *testing.T) {
			t.Parallel()
			for file, imports := range internalImports(t, filepath.Join("..", dir)) {
				for _, target := range imports {
					if reason := rule(file, target); reason != "" {
						t.Errorf("%s imports %s: %s", file, target, reason)
					}
				}
			}
		})
	}
}

// internalImports maps every non-test Go file under root to its ghnb/internal imports.
func internalImports(t *testing.T, root string) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()
	out := map[string][]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		file := strings.TrimPrefix(filepath.ToSlash(path), "../")
		for _, imp := range node.Imports {
			target := strings.Trim(imp.Path.Value, `"`)
			if strings.HasPrefix(target, modulePath) {
				out[file] = append(out[file], strings.TrimPrefix(target, modulePath))
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return out
}

// moduleOf splits "modules/<name>/<layer>/..." into name and layer.
func moduleOf(path string) (string, string) {
	rest, ok := strings.CutPrefix(path, "modules/")
	if !ok {
		return "", ""
	}
	name, rest, _ := strings.Cut(rest, "/")
	rest += "/"
	for _, layer := range layers {
		if strings.HasPrefix(rest, layer+"/") {
			return name, layer
		}
	}
	return name, ""
}

func moduleRule(file, target string) string {
	module, layer := moduleOf(file)
	if strings.HasPrefix(target, "ui/") || target == "bootstrap" {
		return "modules never depend on the UI or bootstrap"
	}
	targetModule, targetLayer := moduleOf(target)
	if targetModule == "" {
		return ""
	}
	if targetModule != module {
		if targetLayer != "port/in" && targetLayer != "dto" {
			return "other modules are reachable only through port/in and dto"
		}
		return ""
	}
	switch layer {
	case "adapter/in":
		if targetLayer != "port/in" && targetLayer != "dto" {
			return "inbound adapters talk to the usecase port only"
		}
	case "usecase":
		if targetLayer == "adapter/in" || targetLayer == "adapter/out" {
			return "usecases depend on ports, not adapters"
		}
	case "service":
		if targetLayer == "adapter/in" || targetLayer == "adapter/out" || targetLayer == "usecase" {
			return "services sit below usecases and adapters"
		}
	case "domain":
		if targetLayer != "domain" {
			return "domain imports nothing else from its module"
		}
	}
	return ""
}

func platformRule(_, target string) string {
	if !strings.HasPrefix(target, "platform/") {
		return "platform packages are leaves"
	}
	return ""
}

func uiRule(_, target string) string {
	if module, layer := moduleOf(target); module != "" && layer != "dto" {
		return "views render dto values and reach modules through their own ports"
	}
	if target == "bootstrap" {
		return "bootstrap wires the UI, not the reverse"
	}
	return ""
}

func TestModuleOf(t *testing.T) {
	t.Parallel()
	cases := []struct {
		path, module, layer string
	}{
		{"modules/execution/service/controller.go", "execution", "service"},
		{"modules/execution/adapter/out", "execution", "adapter/out"},
		{"modules/notebook/port/in/notebook.go", "notebook", "port/in"},
		{"platform/clock", "", ""},
	}
	for _, c := range cases {
		module, layer := moduleOf(c.path)
		if module != c.module || layer != c.layer {
			t.Fatalf("moduleOf(%q) = %q, %q; expected %q, %q", c.path, module, layer, c.module, c.layer)
		}
	}
}
