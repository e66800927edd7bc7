package server

import (
	"strings"
	"testing"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/intcode/pkg/image"
)

// ---------------------------------------------------------------------------
// diagnose
// ---------------------------------------------------------------------------

func TestDiagnose_CleanProgram(t *testing.T) {
	diags := diagnose("1,0,0,0,99")
	if len(diags) != 0 {
		t.Errorf("diagnose returned %d diagnostics, want 0: %+v", len(diags), diags)
	}
}

func TestDiagnose_EmptyText(t *testing.T) {
	diags := diagnose("  \n")
	if diags == nil {
		t.Fatal("diagnose should return an empty slice, not nil")
	}
	if len(diags) != 0 {
		t.Errorf("diagnose returned %d diagnostics, want 0", len(diags))
	}
}

func TestDiagnose_ParseError(t *testing.T) {
	diags := diagnose("1,2,abc,4")
	if len(diags) != 1 {
		t.Fatalf("diagnose returned %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want Error", d.Severity)
	}
	want := spanRange(0, 4, 3)
	if d.Range != want {
		t.Errorf("range = %+v, want %+v", d.Range, want)
	}
	if !strings.Contains(d.Message, `"abc"`) {
		t.Errorf("message %q should quote the bad cell", d.Message)
	}
}

func TestDiagnose_ParseErrorSecondLine(t *testing.T) {
	diags := diagnose("1,2,\n  3x")
	if len(diags) != 1 {
		t.Fatalf("diagnose returned %d diagnostics, want 1", len(diags))
	}
	want := spanRange(1, 2, 2)
	if diags[0].Range != want {
		t.Errorf("range = %+v, want %+v", diags[0].Range, want)
	}
}

func TestDiagnose_EmptyCellHasWidth(t *testing.T) {
	diags := diagnose("1,,2")
	if len(diags) != 1 {
		t.Fatalf("diagnose returned %d diagnostics, want 1", len(diags))
	}
	if diags[0].Range != spanRange(0, 2, 1) {
		t.Errorf("range = %+v", diags[0].Range)
	}
}

func TestDiagnose_UnknownOpcodeBeforeHalt(t *testing.T) {
	diags := diagnose("42, 99")
	if len(diags) != 1 {
		t.Fatalf("diagnose returned %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("severity = %v, want Warning", d.Severity)
	}
	if d.Range != spanRange(0, 0, 2) {
		t.Errorf("range = %+v", d.Range)
	}
	if !strings.HasPrefix(d.Message, "cell 42 at address 0:") {
		t.Errorf("message = %q", d.Message)
	}
	if d.Source == nil || *d.Source != lspName {
		t.Errorf("source = %v, want %q", d.Source, lspName)
	}
}

func TestDiagnose_ImmediateWrite(t *testing.T) {
	diags := diagnose("11101,1,1,1,99")
	if len(diags) != 1 {
		t.Fatalf("diagnose returned %d diagnostics, want 1", len(diags))
	}
	if !strings.Contains(diags[0].Message, "immediate") {
		t.Errorf("message = %q", diags[0].Message)
	}
}

func TestDiagnose_DataAfterHaltIgnored(t *testing.T) {
	diags := diagnose("104,7,99,42,-1,98")
	if len(diags) != 0 {
		t.Errorf("diagnose returned %d diagnostics, want 0: %+v", len(diags), diags)
	}
}

// ---------------------------------------------------------------------------
// hoverAt
// ---------------------------------------------------------------------------

func hoverText(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	if h == nil {
		t.Fatal("hoverAt returned nil")
	}
	mc, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatalf("hover contents is %T, want MarkupContent", h.Contents)
	}
	if mc.Kind != protocol.MarkupKindMarkdown {
		t.Errorf("hover kind = %q, want markdown", mc.Kind)
	}
	return mc.Value
}

func TestHover_Opcode(t *testing.T) {
	h := hoverAt("1101,1,2,5,99", protocol.Position{Line: 0, Character: 1})
	text := hoverText(t, h)

	for _, want := range []string{
		"**ADD   #1, #2, [5]**",
		"address 0, opcode cell 1101",
		"modes: immediate, immediate, position",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("hover %q should contain %q", text, want)
		}
	}
	if h.Range == nil || *h.Range != spanRange(0, 0, 4) {
		t.Errorf("hover range = %+v", h.Range)
	}
}

func TestHover_Operand(t *testing.T) {
	h := hoverAt("1101,1,2,5,99", protocol.Position{Line: 0, Character: 7})
	text := hoverText(t, h)

	if !strings.Contains(text, "operand 2: immediate mode, raw 2") {
		t.Errorf("hover = %q", text)
	}
	if h.Range == nil || *h.Range != spanRange(0, 7, 1) {
		t.Errorf("hover range = %+v", h.Range)
	}
}

func TestHover_LaterInstruction(t *testing.T) {
	h := hoverAt("109,-3,\n204,1,\n99", protocol.Position{Line: 1, Character: 0})
	text := hoverText(t, h)

	if !strings.Contains(text, "**OUT   [rb+1]**") {
		t.Errorf("hover = %q", text)
	}
	if !strings.Contains(text, "address 2") {
		t.Errorf("hover = %q", text)
	}
}

func TestHover_Data(t *testing.T) {
	h := hoverAt("99,42", protocol.Position{Line: 0, Character: 3})
	text := hoverText(t, h)

	if !strings.HasPrefix(text, "**DATA** `42`") {
		t.Errorf("hover = %q", text)
	}
}

func TestHover_NoCell(t *testing.T) {
	if h := hoverAt("1,0,0,0,99", protocol.Position{Line: 4, Character: 0}); h != nil {
		t.Errorf("hover past end = %+v, want nil", h)
	}
	if h := hoverAt("1,x", protocol.Position{Line: 0, Character: 0}); h != nil {
		t.Errorf("hover on unparsable text = %+v, want nil", h)
	}
}

// ---------------------------------------------------------------------------
// cellAt
// ---------------------------------------------------------------------------

func TestCellAt(t *testing.T) {
	spans := image.Spans("10, 20,\n  30")

	tests := []struct {
		line, char uint32
		want       int
	}{
		{0, 0, 0},
		{0, 2, 0}, // just past the cell
		{0, 3, -1},
		{0, 4, 1},
		{1, 1, -1},
		{1, 2, 2},
		{1, 4, 2},
		{2, 0, -1},
	}
	for _, tt := range tests {
		got := cellAt(spans, protocol.Position{Line: tt.line, Character: tt.char})
		if got != tt.want {
			t.Errorf("cellAt(%d:%d) = %d, want %d", tt.line, tt.char, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Document lifecycle
// ---------------------------------------------------------------------------

// notifyRecorder is a glsp.Context whose notifications land on a channel.
func notifyRecorder() (*glsp.Context, <-chan protocol.PublishDiagnosticsParams) {
	ch := make(chan protocol.PublishDiagnosticsParams, 4)
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				ch <- params.(protocol.PublishDiagnosticsParams)
			}
		},
	}
	return ctx, ch
}

func nextDiagnostics(t *testing.T, ch <-chan protocol.PublishDiagnosticsParams) protocol.PublishDiagnosticsParams {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no diagnostics published")
		return protocol.PublishDiagnosticsParams{}
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := NewLSP("test")
	ctx, published := notifyRecorder()
	const uri = protocol.DocumentUri("file:///tmp/prog.intcode")

	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "42, 99"},
	})
	if err != nil {
		t.Fatal(err)
	}
	p := nextDiagnostics(t, published)
	if p.URI != uri {
		t.Errorf("URI = %q, want %q", p.URI, uri)
	}
	if len(p.Diagnostics) != 1 || !strings.Contains(p.Diagnostics[0].Message, "unknown opcode") {
		t.Fatalf("diagnostics on open = %+v, want one unknown opcode", p.Diagnostics)
	}

	hover, err := s.textDocumentHover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 4},
		},
	})
	if err != nil || hover == nil {
		t.Fatalf("hover = %v, %v; want a hover for the open document", hover, err)
	}

	err = s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri}},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "104, 1, 99"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := nextDiagnostics(t, published); len(p.Diagnostics) != 0 {
		t.Errorf("diagnostics after fix = %+v, want none", p.Diagnostics)
	}

	if err := s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}); err != nil {
		t.Fatal(err)
	}
	p = nextDiagnostics(t, published)
	if p.Diagnostics == nil || len(p.Diagnostics) != 0 {
		t.Errorf("diagnostics after close = %+v, want an empty list", p.Diagnostics)
	}

	hover, _ = s.textDocumentHover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		},
	})
	if hover != nil {
		t.Errorf("hover after close = %+v, want nil", hover)
	}
}
