package loader

import (
	"fmt"
	"log"
	"strings"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks what init.lua declared before anything is applied.
func validate(s *Script) error {
	ve := &ValidationError{}

	seen := make(map[string]bool)
	for i, a := range s.Aliases {
		switch {
		case strings.TrimSpace(a.Name) == "":
			ve.Errors = append(ve.Errors, fmt.Sprintf("alias #%d has an empty name", i+1))
			continue
		case strings.ContainsAny(a.Name, " \t\r\n"):
			ve.Errors = append(ve.Errors, fmt.Sprintf("alias %q: name must be a single word", a.Name))
		}
		if strings.TrimSpace(a.Expansion) == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("alias %q has an empty expansion", a.Name))
		}

		if seen[a.Name] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("alias %q defined more than once; the last one wins", a.Name))
		}
		seen[a.Name] = true

		// Expansion is one level deep, so a self-reference just runs the word.
		if first, _, _ := strings.Cut(strings.TrimSpace(a.Expansion), " "); first == a.Name {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("alias %q expands to itself", a.Name))
		}
	}

	for i, line := range s.Commands {
		if strings.TrimSpace(line) == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("run #%d is empty", i+1))
		}
	}

	for _, w := range ve.Warnings {
		log.Printf("[init] warning: %s", w)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
