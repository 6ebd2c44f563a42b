package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
	"github.com/tinyland-inc/huskycat/internal/registry"
	"github.com/tinyland-inc/huskycat/internal/result"
)

// ValidateRequest is what a tools/call (or validate_async) invocation asks
// the orchestrator to do.
type ValidateRequest struct {
	Path   string
	Fix    bool
	Staged bool
	// Tool restricts the run to a single registered tool, for the
	// validate_<name> entries tools/list derives from the registry. Empty
	// means every tool the mode adapter's filter selects.
	Tool string
}

// Runner is the synchronous validation entry point the Dispatcher calls
// through; internal/engine's Engine implements it, wiring the registry,
// router, and executor together. Kept as an interface so the
// dispatcher is testable without a real tool invocation.
type Runner interface {
	Validate(ctx context.Context, req ValidateRequest) (result.Run, error)
}

// Dispatcher maps incoming JSON-RPC method calls to validation commands,
// per spec.md §4.11.
type Dispatcher struct {
	Registry *registry.Registry
	Runner   Runner

	tasks *taskTable
}

// NewDispatcher returns a Dispatcher ready to serve requests.
func NewDispatcher(reg *registry.Registry, runner Runner) *Dispatcher {
	return &Dispatcher{Registry: reg, Runner: runner, tasks: newTaskTable()}
}

// Handle dispatches one decoded Request and returns the Response to write
// back, or nil for a notification (no id, no reply per JSON-RPC 2.0).
func (d *Dispatcher) Handle(ctx context.Context, req Request) *Response {
	if req.IsNotification() {
		return nil
	}

	res, errObj := d.dispatch(ctx, req)
	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	if errObj != nil {
		resp.Error = errObj
	} else {
		resp.Result = res
	}
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (any, *ErrorObject) {
	switch req.Method {
	case "initialize":
		return d.initialize(), nil
	case "tools/list":
		return d.toolsList(), nil
	case "tools/call":
		return d.toolsCall(ctx, req.Params)
	case "validate_async":
		return d.validateAsync(req.Params)
	case "get_task_status":
		return d.getTaskStatus(req.Params)
	case "cancel_async_task":
		return d.cancelAsyncTask(req.Params)
	default:
		return nil, &ErrorObject{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method), Kind: string(huskyerr.KindProtocol)}
	}
}

// serverInfo / capabilities shape for the initialize response.
type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      serverInfo     `json:"serverInfo"`
	Capabilities    map[string]any `json:"capabilities"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (d *Dispatcher) initialize() initializeResult {
	return initializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo:      serverInfo{Name: "huskycat", Version: "1.0.0"},
		Capabilities:    map[string]any{"tools": map[string]any{}},
	}
}

type toolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// toolsList derives one validate_<name> entry per registered tool, plus
// the two fixed entries validate and validate_staged (spec.md §4.11: "Tool
// names surfaced through tools/list are derived deterministically from the
// Tool Registry").
func (d *Dispatcher) toolsList() toolsListResult {
	schema := defaultInputSchema()
	tools := []ToolDescriptor{
		{Name: "validate", Description: "Validate the given path with every applicable tool", InputSchema: schema},
		{Name: "validate_staged", Description: "Validate only the repository's currently staged files", InputSchema: schema},
	}
	if d.Registry != nil {
		for _, t := range d.Registry.All() {
			tools = append(tools, ToolDescriptor{
				Name:        "validate_" + t.Name,
				Description: fmt.Sprintf("Validate the given path with %s only", t.Name),
				InputSchema: schema,
			})
		}
	}
	return toolsListResult{Tools: tools}
}

type toolCallParams struct {
	Name      string       `json:"name"`
	Arguments toolCallArgs `json:"arguments"`
}

type toolCallArgs struct {
	Path string `json:"path"`
	Fix  bool   `json:"fix"`
}

func (d *Dispatcher) toolsCall(ctx context.Context, raw json.RawMessage) (any, *ErrorObject) {
	var params toolCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ErrorObject{Code: CodeInvalidParams, Message: "malformed tools/call params: " + err.Error(), Kind: string(huskyerr.KindProtocol)}
	}

	req := ValidateRequest{Path: params.Arguments.Path, Fix: params.Arguments.Fix}
	switch {
	case params.Name == "validate":
	case params.Name == "validate_staged":
		req.Staged = true
	case len(params.Name) > len("validate_"):
		req.Tool = params.Name[len("validate_"):]
	default:
		return nil, &ErrorObject{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown tool %q", params.Name), Kind: string(huskyerr.KindProtocol)}
	}

	run, err := d.Runner.Validate(ctx, req)
	if err != nil {
		return CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}

	runJSON, _ := json.Marshal(run)
	return CallToolResult{Content: []ContentBlock{{Type: "text", Text: string(runJSON)}}}, nil
}

type validateAsyncParams struct {
	Path string `json:"path"`
	Fix  bool   `json:"fix"`
}

type taskIDResult struct {
	TaskID string `json:"taskId"`
}

func (d *Dispatcher) validateAsync(raw json.RawMessage) (any, *ErrorObject) {
	var params validateAsyncParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ErrorObject{Code: CodeInvalidParams, Message: "malformed validate_async params: " + err.Error(), Kind: string(huskyerr.KindProtocol)}
	}

	task, taskCtx := d.tasks.create()
	go func() {
		d.tasks.setRunning(task.ID)
		run, err := d.Runner.Validate(taskCtx, ValidateRequest{Path: params.Path, Fix: params.Fix})
		if err != nil {
			// A failed run is still a finished task; the error surfaces as
			// a failed Run rather than an RPC fault, since the tools/call
			// path treats tool failures the same way.
			run.Success = false
		}
		d.tasks.finish(task.ID, run)
	}()

	return taskIDResult{TaskID: task.ID}, nil
}

type taskIDParams struct {
	TaskID string `json:"taskId"`
}

type taskStatusResult struct {
	State  string      `json:"state"`
	Result *result.Run `json:"result,omitempty"`
}

func (d *Dispatcher) getTaskStatus(raw json.RawMessage) (any, *ErrorObject) {
	var params taskIDParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ErrorObject{Code: CodeInvalidParams, Message: "malformed get_task_status params: " + err.Error(), Kind: string(huskyerr.KindProtocol)}
	}

	task, ok := d.tasks.get(params.TaskID)
	if !ok {
		return nil, &ErrorObject{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown taskId %q", params.TaskID), Kind: string(huskyerr.KindProtocol)}
	}
	return taskStatusResult{State: string(task.State), Result: task.Result}, nil
}

type cancelledResult struct {
	Cancelled bool `json:"cancelled"`
}

func (d *Dispatcher) cancelAsyncTask(raw json.RawMessage) (any, *ErrorObject) {
	var params taskIDParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ErrorObject{Code: CodeInvalidParams, Message: "malformed cancel_async_task params: " + err.Error(), Kind: string(huskyerr.KindProtocol)}
	}
	return cancelledResult{Cancelled: d.tasks.cancelTask(params.TaskID)}, nil
}
