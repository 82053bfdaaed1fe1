package route

import (
	"errors"
	"fmt"

	"github.com/agnivade/levenshtein"
)

// ErrNotFound is the sentinel wrapped by NotFoundError.
var ErrNotFound = errors.New("no route matches location")

// maxSuggestionDistance bounds how different a suggestion may be from the
// requested path.
const maxSuggestionDistance = 3

// NotFoundError reports a location that matched no route. Suggestion holds
// the closest known route path, if one is near enough.
type NotFoundError struct {
	Pathname   string
	Suggestion string
}

// NewNotFoundError builds a NotFoundError for pathname with a suggestion
// drawn from the full paths in routes.
func NewNotFoundError(routes []*Route, pathname string) *NotFoundError {
	return &NotFoundError{
		Pathname:   pathname,
		Suggestion: Suggest(routes, pathname),
	}
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("no route matches %s (did you mean %s?)", e.Pathname, e.Suggestion)
	}
	return fmt.Sprintf("no route matches %s", e.Pathname)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Suggest returns the full route path with the smallest edit distance to
// pathname, or "" when none is within maxSuggestionDistance.
func Suggest(routes []*Route, pathname string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1

	Walk(routes, func(r *Route, full string, _ int) bool {
		if r == nil {
			return false
		}
		if d := levenshtein.ComputeDistance(pathname, full); d < bestDist {
			best, bestDist = full, d
		}
		return true
	})

	return best
}
