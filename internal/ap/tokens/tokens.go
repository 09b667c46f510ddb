// Package tokens implements the literal placeholder substitution used by the
// configuration and unit templates. Tokens are replaced verbatim; anything
// that still looks like a token after substitution is reported so a typo in a
// template cannot silently reach the daemon.
package tokens

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	sharederrors "github.com/juagargi/scion-box/internal/shared/errors"
)

// tokenPattern matches placeholder tokens such as _PORT_ or _COORDINATOR_URL_.
var tokenPattern = regexp.MustCompile(`_[A-Z][A-Z0-9_]*_`)

// Render substitutes every token in text with its value and returns the
// result together with any tokens left unresolved.
func Render(text string, values map[string]string) (string, []string) {
	pairs := make([]string, 0, len(values)*2)
	for token, value := range values {
		pairs = append(pairs, token, value)
	}

	out := strings.NewReplacer(pairs...).Replace(text)

	seen := make(map[string]struct{})
	var unresolved []string
	for _, match := range tokenPattern.FindAllString(out, -1) {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		unresolved = append(unresolved, match)
	}
	sort.Strings(unresolved)

	return out, unresolved
}

// RenderFile reads path and renders it with values. Unresolved tokens are an
// error: the template and the substitution map must agree exactly.
func RenderFile(path string, values map[string]string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", path, err)
	}

	out, unresolved := Render(string(raw), values)
	if len(unresolved) > 0 {
		return "", sharederrors.NewRenderError(path, unresolved)
	}

	return out, nil
}
