package icon

import (
	"context"
	"encoding/json"
)

// Transport is the external collaborator that actually moves bytes over
// the wire (spec.md §1: "HTTP/websocket transport... remain external
// collaborators — §6 specifies their contracts only"). The core never
// performs I/O; transport/http.go is a reference implementation sending a
// built Request over net/http.
type Transport interface {
	Send(ctx context.Context, req *Request) (json.RawMessage, *Error)
}
