package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

// Bundle resolves a function's transitive internal dependencies into
// one source bundle, each dependency emitted before its dependents.
// Cycles and diamonds are handled by a visited set; a missing
// dependency is simply absent from the bundle. Only the root name must
// exist.
func (e *Engine) Bundle(ctx context.Context, name string) (string, error) {
	if _, err := e.store.GetFunction(ctx, name); err != nil {
		return "", err
	}

	var sb strings.Builder
	visited := make(map[string]bool)
	if err := e.bundleInto(ctx, name, visited, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (e *Engine) bundleInto(ctx context.Context, name string, visited map[string]bool, sb *strings.Builder) error {
	if visited[name] {
		return nil
	}
	visited[name] = true

	rec, err := e.store.GetFunction(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil // declared but never saved
		}
		return err
	}

	for _, dep := range rec.InternalDependencies() {
		if err := e.bundleInto(ctx, dep, visited, sb); err != nil {
			return err
		}
	}

	fmt.Fprintf(sb, "# --- %s ---\n%s\n\n", rec.Name, strings.TrimRight(rec.Code, "\n"))
	return nil
}
