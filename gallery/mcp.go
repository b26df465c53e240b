package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/lanterne/kit"
)

// RegisterMCP registers gallery tools on an MCP server.
//
// Registered tools:
//
//	lanterne_ingest: ingest image/PDF/package files by path
//	lanterne_status: slide count and delay setting
//	lanterne_export: export the persisted set as a package document
//	lanterne_import: import a package document from a file
//	lanterne_reset:  clear the gallery and the store
func (g *Gallery) RegisterMCP(srv *mcp.Server) {
	g.registerIngestTool(srv)
	g.registerStatusTool(srv)
	g.registerExportTool(srv)
	g.registerImportTool(srv)
	g.registerResetTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// InputFromFile reads a file into an Input, deriving MIME from the
// extension and Modified from the file's mtime.
func InputFromFile(path string) (Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Input{}, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Input{
		Name:     filepath.Base(path),
		MIME:     mime.TypeByExtension(filepath.Ext(path)),
		Size:     info.Size(),
		Modified: info.ModTime().UnixMilli(),
		Data:     data,
	}, nil
}

// --- ingest ---

type ingestReq struct {
	Paths []string `json:"paths"`
}

func (g *Gallery) registerIngestTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "lanterne_ingest",
		Description: "Ingest slide sources (images, PDFs, exported packages) by file path.",
		InputSchema: inputSchema(map[string]any{
			"paths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "File paths to ingest",
			},
		}, []string{"paths"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*ingestReq)
		inputs := make([]Input, 0, len(r.Paths))
		for _, p := range r.Paths {
			in, err := InputFromFile(p)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, in)
		}
		return g.Ingest(ctx, inputs), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r ingestReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- status ---

func (g *Gallery) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "lanterne_status",
		Description: "Report the number of loaded slides and the slideshow delay.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"slides": g.Len(), "delay_ms": g.Delay()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- export ---

type exportReq struct {
	Path string `json:"path,omitempty"`
}

func (g *Gallery) registerExportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "lanterne_export",
		Description: "Export all persisted slides as a package document, inline or to a file.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Optional file to write the package to"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*exportReq)
		data, err := g.ExportPackage(ctx)
		if err != nil {
			return nil, err
		}
		if r.Path != "" {
			if err := os.WriteFile(r.Path, data, 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", r.Path, err)
			}
			return map[string]any{"path": r.Path, "bytes": len(data)}, nil
		}
		return map[string]any{"package": string(data)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r exportReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- import ---

type importReq struct {
	Path string `json:"path"`
}

func (g *Gallery) registerImportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "lanterne_import",
		Description: "Import a previously exported package document from a file.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Package file to import"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*importReq)
		data, err := os.ReadFile(r.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.Path, err)
		}
		added, total, err := g.ImportPackage(ctx, data)
		if err != nil {
			return map[string]any{"added": 0, "total": 0, "error": true}, nil
		}
		return map[string]any{"added": added, "total": total}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r importReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- reset ---

func (g *Gallery) registerResetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "lanterne_reset",
		Description: "Clear all loaded slides and wipe the persisted store.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := g.Reset(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"cleared": true}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
