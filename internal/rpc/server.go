package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/tinyland-inc/huskycat/internal/logging"
)

// Server runs the Dispatcher over a line-delimited JSON-RPC 2.0 stream,
// one object per line on in and one response object per line on out. It
// is the server-side mirror of codeNERD's StdioTransport read loop
// (internal/mcp/transport_stdio.go's readStdout): where that loop framed
// responses arriving from an external MCP server, this loop frames
// requests arriving from an external agent and writes huskycat's own
// replies back.
type Server struct {
	Dispatcher *Dispatcher

	writeMu sync.Mutex
}

// NewServer returns a Server driving d.
func NewServer(d *Dispatcher) *Server {
	return &Server{Dispatcher: d}
}

// Serve reads newline-delimited JSON-RPC requests from in until EOF or ctx
// is cancelled, dispatching each one and writing its response to out.
// Malformed lines produce a parse-error response rather than aborting the
// loop, since one bad line from a misbehaving agent shouldn't kill the
// session.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(out, &Response{
				JSONRPC: "2.0",
				Error:   &ErrorObject{Code: CodeParseError, Message: "invalid JSON: " + err.Error()},
			})
			continue
		}

		resp := s.Dispatcher.Handle(ctx, req)
		if resp == nil {
			continue
		}
		s.write(out, resp)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("rpc: reading request stream: %w", err)
	}
	return nil
}

func (s *Server) write(out io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Get(logging.CategoryRPC).Error("rpc: failed to marshal response: %v", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, _ = out.Write(data)
	_, _ = out.Write([]byte("\n"))
}
