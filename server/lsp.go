package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/intcode/pkg/image"
	"github.com/chazu/intcode/pkg/intcode"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "intcode-lsp"

var lspLog = commonlog.GetLogger("intcode.lsp")

// LspServer provides diagnostics and hover for Intcode program files.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog.Info("initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return hoverAt(text, params.Position), nil
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnose(text)
	lspLog.Debug("diagnostics", "uri", string(uri), "count", len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// --- Analysis (pure functions over document text) ---

// diagnose reports a parse error, or else every undecodable instruction
// reached by linear decoding before the first HALT. Cells after the first
// HALT are usually data and are not checked.
func diagnose(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	program, err := image.Parse(text)
	if err != nil {
		var pe *image.ParseError
		if !errors.As(err, &pe) {
			return diagnostics
		}
		width := len(pe.Text)
		if width == 0 {
			width = 1
		}
		return append(diagnostics, newDiagnostic(pe.Line, pe.Column, width,
			protocol.DiagnosticSeverityError, err.Error()))
	}

	spans := image.Spans(text)
	for addr := int64(0); addr < int64(len(program)); {
		ins, err := intcode.Decode(program, addr)
		if err != nil {
			sp := spans[addr]
			diagnostics = append(diagnostics, newDiagnostic(sp.Line, sp.Column, sp.Len,
				protocol.DiagnosticSeverityWarning, fmt.Sprintf("cell %d at address %d: %v", ins.Cell, addr, err)))
			addr++
			continue
		}
		if ins.Op == intcode.OpHalt {
			break
		}
		addr += ins.Len()
	}
	return diagnostics
}

// hoverAt describes the instruction covering the cell under pos.
func hoverAt(text string, pos protocol.Position) *protocol.Hover {
	program, err := image.Parse(text)
	if err != nil {
		return nil
	}
	spans := image.Spans(text)
	idx := cellAt(spans, pos)
	if idx < 0 {
		return nil
	}

	// Walk instructions linearly up to the one that covers idx.
	var addr int64
	for {
		_, width := intcode.DisassembleAt(program, addr)
		if addr+int64(width) > int64(idx) {
			break
		}
		addr += int64(width)
	}

	var sb strings.Builder
	ins, err := intcode.Decode(program, addr)
	if err != nil {
		fmt.Fprintf(&sb, "**DATA** `%d`\n\naddress %d: %v", program[idx], idx, err)
	} else {
		fmt.Fprintf(&sb, "**%s**", intcode.FormatInstruction(ins))
		fmt.Fprintf(&sb, "\n\naddress %d, opcode cell %d", addr, ins.Cell)
		if operand := int64(idx) - addr - 1; operand >= 0 {
			p := ins.Params[operand]
			fmt.Fprintf(&sb, "\n\noperand %d: %s mode, raw %d", operand+1, p.Mode, p.Raw)
		} else if len(ins.Params) > 0 {
			modes := make([]string, len(ins.Params))
			for i, p := range ins.Params {
				modes[i] = p.Mode.String()
			}
			fmt.Fprintf(&sb, "\n\nmodes: %s", strings.Join(modes, ", "))
		}
	}

	sp := spans[idx]
	r := spanRange(sp.Line, sp.Column, sp.Len)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: sb.String(),
		},
		Range: &r,
	}
}

// cellAt returns the index of the span containing pos, or -1.
func cellAt(spans []image.Span, pos protocol.Position) int {
	line, col := int(pos.Line), int(pos.Character)
	for i, sp := range spans {
		if sp.Line == line && col >= sp.Column && col <= sp.Column+sp.Len {
			return i
		}
		if sp.Line > line {
			break
		}
	}
	return -1
}

func newDiagnostic(line, col, width int, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	source := lspName
	return protocol.Diagnostic{
		Range:    spanRange(line, col, width),
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

func spanRange(line, col, width int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col + width)},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
