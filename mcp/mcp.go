package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

const (
	ServerName    = "rosteleop"
	ServerVersion = "1.0.0"
)

type Server interface {
	Run(ctx context.Context) error
}

// MCPServer serves the registered tools over stdio. Stdout carries the
// protocol, so nothing else may write to it while Run is active.
type MCPServer struct {
	Server *server.MCPServer
	log    logrus.FieldLogger

	in  io.Reader
	out io.Writer
}

func NewMCPServer(logger logrus.FieldLogger) *MCPServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MCPServer{
		Server: server.NewMCPServer(ServerName, ServerVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		log: logger.WithField("component", "mcp"),
		in:  os.Stdin,
		out: os.Stdout,
	}
}

func (s *MCPServer) AddTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.Server.AddTool(tool, handler)
}

// Run serves stdio until the client closes it or ctx is done
func (s *MCPServer) Run(ctx context.Context) error {
	s.log.Info("Started stdio MCP server")
	defer func() {
		s.log.Info("Shut down stdio MCP server")
	}()

	stdio := server.NewStdioServer(s.Server)
	if err := stdio.Listen(ctx, s.in, s.out); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
