package api

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type openAPIOperation struct {
	Security *[]map[string][]string `yaml:"security"`
}

type openAPIDocument struct {
	Paths map[string]map[string]openAPIOperation `yaml:"paths"`
}

func loadOpenAPI(t *testing.T) openAPIDocument {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	content, err := os.ReadFile(filepath.Join(repoRoot, "api", "openapi.yaml"))
	if err != nil {
		t.Fatalf("read openapi file error = %v", err)
	}
	var doc openAPIDocument
	if err := yaml.Unmarshal(content, &doc); err != nil {
		t.Fatalf("parse openapi file error = %v", err)
	}
	return doc
}

func TestOpenAPIMatchesRoutes(t *testing.T) {
	doc := loadOpenAPI(t)
	cfg := loadConfig(t, map[string]string{})

	documented := map[string]openAPIOperation{}
	for path, operations := range doc.Paths {
		for method, operation := range operations {
			documented[strings.ToUpper(method)+" "+path] = operation
		}
	}

	served := map[string]bool{}
	for _, rt := range apiRoutes(cfg) {
		served[rt.pattern()] = true
		operation, ok := documented[rt.pattern()]
		if !ok {
			t.Errorf("openapi missing %s", rt.pattern())
			continue
		}
		documentedPublic := operation.Security != nil && len(*operation.Security) == 0
		if documentedPublic != rt.public {
			t.Errorf("%s public = %v, openapi says %v", rt.pattern(), rt.public, documentedPublic)
		}
	}

	var extra []string
	for pattern := range documented {
		if !served[pattern] {
			extra = append(extra, pattern)
		}
	}
	sort.Strings(extra)
	if len(extra) > 0 {
		t.Fatalf("openapi documents unserved routes: %v", extra)
	}
}
