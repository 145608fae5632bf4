// Package safety applies a policy over a disassembled pickle stream to
// find dangerous or unauthorized symbol imports, without ever executing
// the stream (spec.md §4.4, component C4).
//
// It maintains a shadow stack tracking only the last two string-valued
// pushes, to resolve STACK_GLOBAL's (module, name) pair. This is an
// intentional approximation — it does not model the full pickle VM — and
// is documented in spec.md §9 as the "screen door" limit: correct
// positives are reliable, some adversarial stack manipulation is known to
// evade it.
package safety

import (
	"strings"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/pickle"
)

// Mode selects which policy Scan applies.
type Mode int

const (
	// ModeBlocklist checks resolved (module, name) pairs against a small
	// table of known-dangerous symbols. This is the default.
	ModeBlocklist Mode = iota
	// ModeStrict inverts the policy: every resolved symbol must be
	// accepted by an allow-rule, or it's a threat.
	ModeStrict
)

// dangerousGlobals is the blocklist policy's table of known-dangerous
// (module, name) pairs (spec.md §4.4), carried over from
// original_source/aisbom/safety.py's DANGEROUS_GLOBALS verbatim.
var dangerousGlobals = map[string]map[string]bool{
	"os":         set("system", "popen", "execl", "execvp"),
	"subprocess": set("Popen", "call", "check_call", "check_output", "run"),
	"builtins":   set("eval", "exec", "compile", "open"),
	"posix":      set("system", "popen"),
	"webbrowser": set("open"),
	"socket":     set("socket", "connect"),
}

// safeModules is the strict-mode allow-rule's exact-match module table,
// carried over from safety.py's SAFE_MODULES.
var safeModules = set(
	"torch", "numpy", "collections", "builtins", "copyreg", "__builtin__",
	"typing", "datetime", "pathlib", "posixpath", "ntpath", "re", "copy",
	"functools", "operator", "warnings", "contextlib", "abc", "enum",
	"dataclasses", "types", "_operator", "complex",
)

// safeBuiltins is the strict-mode allow-rule's builtins.* and
// __builtin__.* name table, carried over from safety.py's SAFE_BUILTINS.
var safeBuiltins = set(
	"getattr", "setattr", "bytearray", "dict", "list", "set", "tuple",
	"slice", "frozenset", "range", "complex", "bool", "int", "float",
	"str", "bytes", "object",
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// isSafeImport is the strict-mode allow-rule, ported directly from
// safety.py's _is_safe_import.
func isSafeImport(module, name string) bool {
	if safeModules[module] {
		return true
	}
	if strings.HasPrefix(module, "torch.") {
		return true
	}
	if module == "_codecs" && (name == "encode" || name == "decode") {
		return true
	}
	if strings.HasPrefix(module, "pathlib.") || strings.HasPrefix(module, "re.") || strings.HasPrefix(module, "collections.") {
		return true
	}
	if module == "builtins" || module == "__builtin__" {
		return safeBuiltins[name]
	}
	return false
}

// stringPushOps is the subset of pickle.StringOps whose pushes the
// shadow stack tracks, matching safety.py's memo (only the three
// opcodes it actually checks, not every string-producing opcode the
// disassembler can decode — STRING/BINBYTES/SHORT_BINBYTES pushes don't
// feed STACK_GLOBAL resolution in the original and aren't tracked here
// either).
var stringPushOps = map[string]bool{
	pickle.OpShortBinUnicode: true,
	pickle.OpUnicode:         true,
	pickle.OpBinUnicode:      true,
}

// Scan walks a disassembled pickle stream and reports every threat found
// under mode. It never panics and never returns an error: totality is
// required by spec.md §8.
func Scan(ops []pickle.Op, mode Mode) []aisbom.Threat {
	var threats []aisbom.Threat
	var memo []string // last two string-valued pushes, oldest first

	resolve := func(module, name string) {
		if module == "" || name == "" {
			return
		}
		switch mode {
		case ModeStrict:
			if !isSafeImport(module, name) {
				threats = append(threats, aisbom.Threat{
					Kind:   aisbom.ThreatUnsafeImport,
					Symbol: module + "." + name,
				})
			}
		default:
			if dangerousGlobals[module][name] {
				threats = append(threats, aisbom.Threat{
					Kind:   aisbom.ThreatDangerousSymbol,
					Symbol: module + "." + name,
				})
			}
		}
	}

	for _, op := range ops {
		if stringPushOps[op.Name] {
			if s, ok := op.Arg.(string); ok {
				memo = append(memo, s)
				if len(memo) > 2 {
					memo = memo[1:]
				}
			}
			continue
		}

		switch op.Name {
		case pickle.OpGlobal:
			arg, ok := op.Arg.(string)
			if !ok {
				continue
			}
			module, name, ok := splitGlobalArg(arg)
			if ok {
				resolve(module, name)
			}
		case pickle.OpStackGlobal:
			// Consumes the top two stack items: name, then module.
			// Silently skipped on underflow or non-string top, per
			// spec.md §4.4 — the engine never asserts.
			if len(memo) == 2 {
				module, name := memo[0], memo[1]
				resolve(module, name)
			}
			memo = nil
		}
	}

	return threats
}

// splitGlobalArg accepts both newline-separated ("module\nname", the
// disassembler's own encoding of GLOBAL's two-line argument) and
// space-separated ("module name") forms, per spec.md §4.4.
func splitGlobalArg(arg string) (module, name string, ok bool) {
	if i := strings.IndexByte(arg, '\n'); i != -1 {
		return arg[:i], arg[i+1:], true
	}
	if i := strings.IndexByte(arg, ' '); i != -1 {
		return arg[:i], arg[i+1:], true
	}
	return "", "", false
}
