// Package lint implements the migration linter: a narrower policy than
// package safety, checking pickle streams for compatibility with
// PyTorch's torch.load(weights_only=True) default-safe-globals allowlist
// (spec.md §4.5, component C5).
package lint

import (
	"strings"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/pickle"
)

// defaultSafeModules mirrors torch.serialization's default safe-globals
// root modules, carried over from
// original_source/aisbom/linter.py's PYTORCH_DEFAULT_SAFE_MODULES.
var defaultSafeModules = map[string]bool{
	"torch":       true,
	"numpy":       true,
	"collections": true,
	"builtins":    true,
	"copyreg":     true,
	"datetime":    true,
	"_codecs":     true,
}

var stringPushOps = map[string]bool{
	pickle.OpShortBinUnicode: true,
	pickle.OpUnicode:         true,
	pickle.OpBinUnicode:      true,
	pickle.OpString:          true,
	pickle.OpBinBytes:        true,
	pickle.OpShortBinBytes:   true,
}

// Lint disassembles data and reports one ERROR diagnostic for every
// resolved symbol whose root module isn't in the default safe-globals
// set. It never panics and never propagates a parse error: a malformed
// stream simply yields whatever diagnostics were found before the
// failure point (spec.md §4.9).
func Lint(data []byte) []aisbom.LintDiagnostic {
	ops := pickle.Disassemble(data)
	var diags []aisbom.LintDiagnostic
	var stack []string

	check := func(module, name string, offset int64) {
		root := module
		if i := strings.IndexByte(module, '.'); i != -1 {
			root = module[:i]
		}
		if defaultSafeModules[root] {
			return
		}
		diags = append(diags, aisbom.LintDiagnostic{
			Offset:   offset,
			Severity: aisbom.SeverityError,
			Message:  "Custom Class Import Detected: " + module + "." + name,
			Hint:     "Module '" + root + "' is not in PyTorch default allowlist. Use torch.serialization.add_safe_globals.",
		})
	}

	for _, op := range ops {
		switch {
		case stringPushOps[op.Name]:
			if s, ok := op.Arg.(string); ok {
				stack = append(stack, s)
			}
		case op.Name == pickle.OpStackGlobal:
			if len(stack) >= 2 {
				name := stack[len(stack)-1]
				module := stack[len(stack)-2]
				stack = stack[:len(stack)-2]
				check(module, name, op.Offset)
			}
		case op.Name == pickle.OpGlobal:
			arg, ok := op.Arg.(string)
			if !ok {
				continue
			}
			module, name, ok := splitModuleName(arg)
			if ok {
				check(module, name, op.Offset)
			}
		case op.Name == pickle.OpPop || op.Name == pickle.OpPopMark:
			// Heuristic stack discipline: blindly drop one slot if
			// present. This is the same "screen door" approximation
			// documented in spec.md §9 — it can desync on non-string
			// pushes, which the design accepts in exchange for
			// simplicity.
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return diags
}

func splitModuleName(arg string) (module, name string, ok bool) {
	if i := strings.IndexByte(arg, '\n'); i != -1 {
		return arg[:i], arg[i+1:], true
	}
	parts := strings.SplitN(arg, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1], true
	}
	if len(parts) == 1 && parts[0] != "" {
		return parts[0], "?", true
	}
	return "", "", false
}
