package safety

import (
	"testing"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/pickle"
)

func TestScanBlocklistDetectsOsSystem(t *testing.T) {
	data := []byte("\x80\x04\x8c\x02os\x8c\x06system\x93.")
	ops := pickle.Disassemble(data)
	threats := Scan(ops, ModeBlocklist)

	if len(threats) != 1 {
		t.Fatalf("got %d threats, want 1: %+v", len(threats), threats)
	}
	if threats[0].Symbol != "os.system" || threats[0].Kind != aisbom.ThreatDangerousSymbol {
		t.Errorf("got %+v, want DANGEROUS_SYMBOL os.system", threats[0])
	}
}

func TestScanBlocklistIgnoresSafeImports(t *testing.T) {
	data := []byte("\x80\x04\x8c\x05torch\x8c\x06Tensor\x93.")
	ops := pickle.Disassemble(data)
	threats := Scan(ops, ModeBlocklist)
	if len(threats) != 0 {
		t.Fatalf("got %+v, want no threats for torch.Tensor under blocklist mode", threats)
	}
}

func TestScanStrictFlagsUnsafeImport(t *testing.T) {
	data := []byte("\x80\x04\x8c\x03foo\x8c\x03bar\x93.")
	ops := pickle.Disassemble(data)
	threats := Scan(ops, ModeStrict)
	if len(threats) != 1 {
		t.Fatalf("got %d threats, want 1: %+v", len(threats), threats)
	}
	if threats[0].String() != "UNSAFE_IMPORT: foo.bar" {
		t.Errorf("got %q, want %q", threats[0].String(), "UNSAFE_IMPORT: foo.bar")
	}
}

func TestScanStrictAllowsKnownSafeSymbols(t *testing.T) {
	cases := []struct{ module, name string }{
		{"builtins", "getattr"},
		{"_codecs", "encode"},
		{"torch.nn", "Linear"},
	}
	for _, c := range cases {
		arg := c.module + "\n" + c.name
		ops := []pickle.Op{
			{Name: pickle.OpGlobal, Arg: arg},
		}
		threats := Scan(ops, ModeStrict)
		if len(threats) != 0 {
			t.Errorf("%s.%s: got %+v, want zero threats in strict mode", c.module, c.name, threats)
		}
	}
}

func TestScanTotalityOnMemoUnderflow(t *testing.T) {
	// STACK_GLOBAL with nothing pushed before it must not panic or
	// fabricate a threat.
	ops := []pickle.Op{{Name: pickle.OpStackGlobal}}
	threats := Scan(ops, ModeBlocklist)
	if len(threats) != 0 {
		t.Fatalf("got %+v, want no threats on memo underflow", threats)
	}
}

func TestScanMemoKeepsOnlyLastTwoStrings(t *testing.T) {
	ops := []pickle.Op{
		{Name: pickle.OpShortBinUnicode, Arg: "ignored"},
		{Name: pickle.OpShortBinUnicode, Arg: "os"},
		{Name: pickle.OpShortBinUnicode, Arg: "system"},
		{Name: pickle.OpStackGlobal},
	}
	threats := Scan(ops, ModeBlocklist)
	if len(threats) != 1 || threats[0].Symbol != "os.system" {
		t.Fatalf("got %+v, want exactly os.system using only the last two pushes", threats)
	}
}
