package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/steps"
)

// parseSteps turns name=value arguments into a step set. Values are read as
// booleans, then numbers, then comma separated lists; anything else stays a
// string. A bare name means true.
func parseSteps(args []string) (steps.Set, error) {
	out := make(steps.Set, len(args))
	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("step %q has no name: %w", arg, internalerr.ErrInvalidInput)
		}
		if !hasValue {
			out[name] = true
			continue
		}
		out[name] = parseValue(strings.TrimSpace(value))
	}
	return out, nil
}

func parseValue(value string) any {
	switch strings.ToLower(value) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if strings.Contains(value, ",") {
		return steps.Terms(strings.Split(value, ","))
	}
	return value
}
