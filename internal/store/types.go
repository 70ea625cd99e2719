package store

// Operation identifies a request handled by the writer goroutine.
type Operation int

const (
	OpAppend Operation = iota
	OpRead
)

type Request struct {
	Op       Operation
	Payload  interface{}
	Result   chan error
	Response chan interface{}
}

type AppendPayload struct {
	Journal string
	Line    []byte // one JSON document, no trailing newline
}

type ReadPayload struct {
	Journal string
	Limit   int // 0 = all
}
