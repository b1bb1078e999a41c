package service

import (
	"fmt"
	"strings"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/expr-lang/expr"
)

// taskMatcher reports whether a task passes a list filter.
type taskMatcher func(models.Task) (bool, error)

func filterEnv(t models.Task) map[string]any {
	return map[string]any{
		"index":     int(t.Index),
		"content":   t.Content,
		"completed": t.Completed,
	}
}

// compileFilter compiles expression once per list call. An empty expression matches everything.
func compileFilter(expression string) (taskMatcher, error) {
	if strings.TrimSpace(expression) == "" {
		return func(models.Task) (bool, error) { return true, nil }, nil
	}
	program, err := expr.Compile(expression, expr.Env(filterEnv(models.Task{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return func(t models.Task) (bool, error) {
		out, err := expr.Run(program, filterEnv(t))
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		ok, _ := out.(bool)
		return ok, nil
	}, nil
}
