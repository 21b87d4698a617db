package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testScanner(t *testing.T) *SecretScanner {
	t.Helper()
	scanner, err := NewSecretScanner(DefaultPolicy())
	if err != nil {
		t.Fatalf("Failed to build scanner: %v", err)
	}
	return scanner
}

func TestCheckSecrets(t *testing.T) {
	scanner := testScanner(t)

	tests := []struct {
		name      string
		text      string
		wantFound bool
	}{
		{
			"OpenAI key shape is detected",
			`API_KEY = "sk-` + strings.Repeat("a", 48) + `"`,
			true,
		},
		{
			"GitHub token shape is detected",
			`token = "ghp_` + strings.Repeat("b", 36) + `"`,
			true,
		},
		{
			"Google API key shape is detected",
			`key = "AIza` + strings.Repeat("c", 35) + `"`,
			true,
		},
		{
			"short sk- prefix alone is clean",
			`prefix = "sk-tooshort"`,
			false,
		},
		{
			"ordinary code is clean",
			"def add(a, b):\n    return a + b\n",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, match := scanner.CheckSecrets(tt.text)
			if found != tt.wantFound {
				t.Errorf("CheckSecrets = %v (match %q), want %v", found, match, tt.wantFound)
			}
			if found && match == "" {
				t.Error("expected the matched string to be reported")
			}
		})
	}
}

func TestCheckSecurity(t *testing.T) {
	auditor := NewAuditor(DefaultPolicy())

	tests := []struct {
		name     string
		code     string
		wantSafe bool
	}{
		{
			"plain arithmetic is safe",
			"def add(a, b):\n    return a + b\n",
			true,
		},
		{
			"import os is forbidden",
			"import os\n\ndef f():\n    return os.getcwd()\n",
			false,
		},
		{
			"from subprocess import is forbidden",
			"from subprocess import run\n\ndef f():\n    return run(['ls'])\n",
			false,
		},
		{
			"aliased forbidden import is caught",
			"import socket as s\n\ndef f():\n    return s\n",
			false,
		},
		{
			"submodule of forbidden root is caught",
			"from urllib.request import urlopen\n\ndef f():\n    return urlopen\n",
			false,
		},
		{
			"eval call is forbidden",
			"def f(expr):\n    return eval(expr)\n",
			false,
		},
		{
			"attribute call to system is forbidden",
			"def f(m):\n    return m.system('ls')\n",
			false,
		},
		{
			"open builtin is forbidden",
			"def f(path):\n    return open(path).read()\n",
			false,
		},
		{
			"dunder access is forbidden",
			"def f(x):\n    return x.__class__\n",
			false,
		},
		{
			"allowed dunder passes",
			"def f(x):\n    return x.__name__\n",
			true,
		},
		{
			"math import is allowed",
			"import math\n\ndef f(x):\n    return math.sqrt(x)\n",
			true,
		},
		{
			"unparseable code is unsafe",
			"def f(:\n    pass\n",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, reason := auditor.CheckSecurity(tt.code)
			if safe != tt.wantSafe {
				t.Errorf("CheckSecurity = %v (reason %q), want %v", safe, reason, tt.wantSafe)
			}
			if !safe && reason == "" {
				t.Error("expected a reason for the violation")
			}
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Run("Given a partial policy file When LoadPolicy Then omitted sections keep defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "policy.yaml")
		content := "forbidden_imports:\n  - os\n  - custom_module\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write policy: %v", err)
		}

		policy, err := LoadPolicy(path)
		if err != nil {
			t.Fatalf("LoadPolicy failed: %v", err)
		}
		if len(policy.ForbiddenImports) != 2 {
			t.Errorf("expected 2 forbidden imports, got %d", len(policy.ForbiddenImports))
		}
		if len(policy.SecretPatterns) == 0 {
			t.Error("expected default secret patterns to survive")
		}
	})

	t.Run("Given a missing file When LoadPolicy Then error with defaults returned", func(t *testing.T) {
		if _, err := LoadPolicy("/nonexistent/policy.yaml"); err == nil {
			t.Error("expected an error for a missing policy file")
		}
	})
}
