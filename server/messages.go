package server

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// SessionServiceName is the fully-qualified name of the session service.
const SessionServiceName = "intcode.v1.SessionService"

// Procedure paths served by the session service.
const (
	LoadProcedure         = "/" + SessionServiceName + "/Load"
	ProvideInputProcedure = "/" + SessionServiceName + "/ProvideInput"
	RunProcedure          = "/" + SessionServiceName + "/Run"
	DriveProcedure        = "/" + SessionServiceName + "/Drive"
	SnapshotProcedure     = "/" + SessionServiceName + "/Snapshot"
	RestoreProcedure      = "/" + SessionServiceName + "/Restore"
	DisassembleProcedure  = "/" + SessionServiceName + "/Disassemble"
	DestroyProcedure      = "/" + SessionServiceName + "/Destroy"
)

// jsonCodec carries plain Go message structs as JSON. It replaces
// connect's default "json" codec, which only accepts protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string                    { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// withJSON is applied to every handler and client of the service.
func withJSON() connect.Option { return connect.WithCodec(jsonCodec{}) }

// LoadRequest starts a session from program text or a stored program.
// Exactly one of Program and ProgramHash must be set.
type LoadRequest struct {
	Program     string `json:"program,omitempty"`
	ProgramHash string `json:"programHash,omitempty"`
	Name        string `json:"name,omitempty"`
}

type LoadResponse struct {
	SessionID   string `json:"sessionId"`
	ProgramHash string `json:"programHash"`
	Cells       int    `json:"cells"`
}

type ProvideInputRequest struct {
	SessionID string `json:"sessionId"`
	Value     int64  `json:"value"`
}

type ProvideInputResponse struct{}

// RunRequest resumes a session until its next suspension.
type RunRequest struct {
	SessionID string `json:"sessionId"`
	// MaxSteps lowers the server's step budget for this call.
	MaxSteps uint64 `json:"maxSteps,omitempty"`
}

// RunResponse reports the suspension. Status is "output", "needs-input"
// or "halted"; Value is set for output.
type RunResponse struct {
	Status string `json:"status"`
	Value  int64  `json:"value,omitempty"`
	IP     int64  `json:"ip"`
	Steps  uint64 `json:"steps"`
}

// DriveRequest feeds Inputs and runs until the program halts or asks
// for input with none left.
type DriveRequest struct {
	SessionID string  `json:"sessionId"`
	Inputs    []int64 `json:"inputs,omitempty"`
	MaxSteps  uint64  `json:"maxSteps,omitempty"`
}

type DriveResponse struct {
	Outputs []int64 `json:"outputs"`
	Status  string  `json:"status"`
	Steps   uint64  `json:"steps"`
	// Unconsumed counts inputs left over when the program halted.
	Unconsumed int `json:"unconsumed,omitempty"`
}

type SnapshotRequest struct {
	SessionID string `json:"sessionId"`
}

// SnapshotResponse carries the CBOR-encoded VM state.
type SnapshotResponse struct {
	State       []byte `json:"state"`
	ProgramHash string `json:"programHash,omitempty"`
}

// RestoreRequest starts a new session from a snapshot.
type RestoreRequest struct {
	State       []byte `json:"state"`
	ProgramHash string `json:"programHash,omitempty"`
	Name        string `json:"name,omitempty"`
}

type RestoreResponse struct {
	SessionID string `json:"sessionId"`
}

// DisassembleRequest lists a session's current memory, or Program when
// no session is given.
type DisassembleRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Program   string `json:"program,omitempty"`
}

type DisassembleResponse struct {
	Listing string `json:"listing"`
	IP      int64  `json:"ip"`
}

type DestroyRequest struct {
	SessionID string `json:"sessionId"`
}

type DestroyResponse struct{}
