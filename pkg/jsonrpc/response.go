package jsonrpc

import (
	"encoding/json"

	"github.com/theapemachine/a2a-bridge/pkg/errors"
)

type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

/*
NewResponse builds a success response that echoes the caller's id verbatim.
An absent id is echoed back as JSON null.
*/
func NewResponse(id json.RawMessage, result any) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      EchoID(id),
		Result:  result,
	}
}

/*
NewErrorResponse wraps an RpcError in a response envelope.
*/
func NewErrorResponse(id json.RawMessage, e *errors.RpcError) Response {
	if e == nil {
		e = errors.ErrInternal
	}

	return Response{
		JSONRPC: "2.0",
		ID:      EchoID(id),
		Error:   e,
	}
}

/*
EchoID normalizes a request id for the response: missing ids become explicit
null so the "id" field is always present on the wire.
*/
func EchoID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}

	return id
}
