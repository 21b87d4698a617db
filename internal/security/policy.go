// Package security provides the static safety collaborators of the
// function store: a regex scanner for credential-shaped strings and a
// restrictive AST audit that blocks code able to compromise the host
// or exfiltrate data.
package security

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy declares what the audit refuses. The zero value is unusable;
// start from DefaultPolicy and override via a YAML policy file.
type Policy struct {
	SecretPatterns    []string `yaml:"secret_patterns"`
	ForbiddenImports  []string `yaml:"forbidden_imports"`
	ForbiddenCalls    []string `yaml:"forbidden_calls"`
	ForbiddenBuiltins []string `yaml:"forbidden_builtins"`
	AllowedDunders    []string `yaml:"allowed_dunders"`
}

// DefaultPolicy returns the built-in restrictive policy.
func DefaultPolicy() Policy {
	return Policy{
		SecretPatterns: []string{
			`AIza[0-9A-Za-z_-]{35}`,  // Google API key
			`ghp_[a-zA-Z0-9]{36}`,    // GitHub personal access token
			`sk-[a-zA-Z0-9]{48}`,     // OpenAI key
		},
		ForbiddenImports: []string{
			"os", "sys", "subprocess", "shutil", "pickle", "marshal", "shelve",
			"socket", "requests", "urllib", "http", "webbrowser", "ftplib",
			"telnetlib", "smtplib", "platform", "ctypes", "builtins", "importlib",
			"multiprocessing", "threading", "pysqlite3", "sqlite3",
		},
		ForbiddenCalls: []string{
			"eval", "exec", "compile", "breakpoint", "__import__",
			"system", "popen", "spawn", "fork", "kill",
		},
		ForbiddenBuiltins: []string{
			"open", "getattr", "setattr", "delattr", "hasattr",
			"globals", "locals", "vars", "dir", "help", "input",
		},
		AllowedDunders: []string{"__name__", "__init__"},
	}
}

// LoadPolicy reads a policy file, with defaults for any omitted section.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}

	var override Policy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return p, fmt.Errorf("parse policy file: %w", err)
	}

	if len(override.SecretPatterns) > 0 {
		p.SecretPatterns = override.SecretPatterns
	}
	if len(override.ForbiddenImports) > 0 {
		p.ForbiddenImports = override.ForbiddenImports
	}
	if len(override.ForbiddenCalls) > 0 {
		p.ForbiddenCalls = override.ForbiddenCalls
	}
	if len(override.ForbiddenBuiltins) > 0 {
		p.ForbiddenBuiltins = override.ForbiddenBuiltins
	}
	if len(override.AllowedDunders) > 0 {
		p.AllowedDunders = override.AllowedDunders
	}
	return p, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
