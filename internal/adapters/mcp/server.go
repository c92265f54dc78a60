// Package mcpadapter exposes the pipeline as Model Context Protocol tools over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
	"github.com/kirillkom/doc-annotator/internal/core/ports"
)

const serverName = "doc-annotator"

type Server struct {
	files     ports.FileAnnotator
	extractor ports.TextExtractor
	caps      domain.Capabilities
	maxWords  int
	logger    *slog.Logger
	mcp       *server.MCPServer
}

func New(
	files ports.FileAnnotator,
	extractor ports.TextExtractor,
	caps domain.Capabilities,
	defaultMaxWords int,
	version string,
	logger *slog.Logger,
) *Server {
	if defaultMaxWords <= 0 {
		defaultMaxWords = domain.DefaultMaxWords
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		files:     files,
		extractor: extractor,
		caps:      caps,
		maxWords:  defaultMaxWords,
		logger:    logger,
		mcp:       server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("annotate_file",
		mcp.WithDescription("Generate a short annotation or title for a PDF, DOCX, DOC or TXT file on the server's filesystem."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path to the document.")),
		mcp.WithNumber("max_words", mcp.Description(fmt.Sprintf("Word ceiling for the annotation (default %d).", s.maxWords))),
		mcp.WithString("mode", mcp.Enum(string(domain.ProfileAnnotation), string(domain.ProfileTitle)),
			mcp.Description("annotation (default) or title.")),
	), s.handleAnnotateFile)

	s.mcp.AddTool(mcp.NewTool("extract_text",
		mcp.WithDescription("Return the plain text extracted from a document, without generation."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path to the document.")),
	), s.handleExtractText)

	s.mcp.AddTool(mcp.NewTool("supported_formats",
		mcp.WithDescription("List the document formats and converters available in this process."),
	), s.handleSupportedFormats)
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleAnnotateFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxWords := req.GetInt("max_words", s.maxWords)
	if maxWords < 1 {
		return mcp.NewToolResultError("max_words must be a positive integer"), nil
	}
	profile, ok := domain.ParseProfile(req.GetString("mode", ""))
	if !ok {
		return mcp.NewToolResultError("mode must be annotation or title"), nil
	}

	result, err := s.files.AnnotateFile(ctx, path, maxWords, profile)
	if err != nil {
		s.logger.Warn("mcp_annotate_failed", "path", path, "error", err)
		return mcp.NewToolResultError(domain.Sentinel(err)), nil
	}
	return mcp.NewToolResultText(result.Annotation.Text), nil
}

func (s *Server) handleExtractText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	extraction, err := s.extractor.Extract(ctx, path)
	if err != nil {
		s.logger.Warn("mcp_extract_failed", "path", path, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", domain.SentinelExtractionFailed, err)), nil
	}
	return mcp.NewToolResultText(extraction.Text), nil
}

func (s *Server) handleSupportedFormats(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formats := make([]string, 0, len(domain.SupportedExtensions))
	for _, ext := range domain.SupportedExtensions {
		if s.caps.Supports(domain.DetectFormat(ext)) {
			formats = append(formats, strings.TrimPrefix(ext, "."))
		}
	}
	payload, err := json.Marshal(map[string]any{
		"formats":      formats,
		"capabilities": s.caps,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal formats: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
