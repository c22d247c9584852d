package transport

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"execdoc/internal/core/errors"
	"execdoc/internal/core/ports"
	"execdoc/internal/shared/observability"
)

const Version = "2.0"

// JSON-RPC error codes. The last two are server-defined.
const (
	CodeParseError      = -32700
	CodeInvalidRequest  = -32600
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternalError   = -32603
	CodeServerError     = -32000
	CodeRateLimited     = -32001
	CodeCapabilityError = -32005
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: &Error{Code: code, Message: message}}
}

type nodeParams struct {
	Node       any            `json:"node"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Dispatcher routes decoded requests to an interpreter.
type Dispatcher struct {
	service ports.Interpreter
	logger  *slog.Logger
}

func NewDispatcher(service ports.Interpreter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{service: service, logger: logger}
}

// Handle decodes payload as one request and returns the encoded response,
// or nil for a notification.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) []byte {
	resp := d.handle(ctx, payload)
	if resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		d.logger.Error("encode response failed", "error", err)
		data, _ = json.Marshal(errorResponse(resp.ID, CodeInternalError, "response could not be encoded"))
	}
	return data
}

func (d *Dispatcher) handle(ctx context.Context, payload []byte) *Response {
	if !json.Valid(payload) {
		observability.RPCRequestsTotal.WithLabelValues("", "parse_error").Inc()
		return errorResponse(nil, CodeParseError, "Parse error")
	}
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil || req.JSONRPC != Version || req.Method == "" {
		observability.RPCRequestsTotal.WithLabelValues(req.Method, "invalid").Inc()
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid Request")
	}
	resp := d.Dispatch(ctx, &req)
	if req.IsNotification() {
		return nil
	}
	return resp
}

// Dispatch runs one request.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	result, rpcErr := d.call(ctx, req)
	status := "ok"
	if rpcErr != nil {
		status = "error"
		d.logger.Debug("request failed", "method", req.Method, "code", rpcErr.Code, "error", rpcErr.Message)
	}
	observability.RPCRequestsTotal.WithLabelValues(req.Method, status).Inc()
	if rpcErr != nil {
		return &Response{JSONRPC: Version, ID: req.ID, Error: rpcErr}
	}
	return &Response{JSONRPC: Version, ID: req.ID, Result: result}
}

func (d *Dispatcher) call(ctx context.Context, req *Request) (any, *Error) {
	switch req.Method {
	case "manifest":
		return d.service.Manifest(), nil
	case "compile", "execute":
		params, rpcErr := decodeParams(req.Params)
		if rpcErr != nil {
			return nil, rpcErr
		}
		var result any
		var err error
		if req.Method == "compile" {
			result, err = d.service.Compile(ctx, params.Node)
		} else {
			result, err = d.service.Execute(ctx, params.Node, params.Parameters)
		}
		if err != nil {
			return nil, toRPCError(err)
		}
		return result, nil
	}
	return nil, &Error{Code: CodeMethodNotFound, Message: "Method not found: " + req.Method}
}

// decodeParams keeps numbers as json.Number so integral parameter values
// stay integers in the scope.
func decodeParams(raw json.RawMessage) (nodeParams, *Error) {
	var params nodeParams
	if len(raw) == 0 {
		return params, &Error{Code: CodeInvalidParams, Message: "Invalid params: node is required"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return params, &Error{Code: CodeInvalidParams, Message: "Invalid params: " + err.Error()}
	}
	if params.Node == nil {
		return params, &Error{Code: CodeInvalidParams, Message: "Invalid params: node is required"}
	}
	return params, nil
}

func toRPCError(err error) *Error {
	switch {
	case errors.IsCode(err, errors.CodeCapability):
		return &Error{Code: CodeCapabilityError, Message: errors.Message(err)}
	case errors.IsCode(err, errors.CodeValidationError):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeServerError, Message: err.Error()}
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

// requestID extracts the id from a payload that may not be a valid request.
func requestID(payload []byte) json.RawMessage {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil
	}
	return probe.ID
}
