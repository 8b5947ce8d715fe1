package bridge

import "github.com/RayforceDB/raylens/materialize"

// command is the closed set of requests the worker understands. Execute and
// GetRows carry their own one-shot response channel; Release, Cancel, and
// Shutdown are fire-and-forget.
type command interface {
	isCommand()
}

type executeCmd struct {
	queryID string
	source  string
	resp    chan execResult
}

type getRowsCmd struct {
	handle uint64
	start  uint64
	count  uint64
	resp   chan rowsResult
}

type releaseCmd struct {
	handle uint64
}

type cancelCmd struct {
	queryID string
}

type shutdownCmd struct{}

func (executeCmd) isCommand()  {}
func (getRowsCmd) isCommand()  {}
func (releaseCmd) isCommand()  {}
func (cancelCmd) isCommand()   {}
func (shutdownCmd) isCommand() {}

type execResult struct {
	meta Meta
	err  error
}

type rowsResult struct {
	rows []materialize.Row
	err  error
}
