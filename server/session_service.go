package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/chazu/intcode/pkg/driver"
	"github.com/chazu/intcode/pkg/image"
	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/store"
)

// SessionService implements the intcode.v1.SessionService handlers.
type SessionService struct {
	sessions *SessionStore
	db       *store.Store
	maxSteps uint64
}

// NewSessionService creates a SessionService. db may be nil, in which
// case programs can only be loaded as text and sessions live in memory.
func NewSessionService(sessions *SessionStore, db *store.Store, maxSteps uint64) *SessionService {
	return &SessionService{
		sessions: sessions,
		db:       db,
		maxSteps: maxSteps,
	}
}

// Handler returns the path prefix and handler serving every procedure.
func (s *SessionService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{withJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(LoadProcedure, connect.NewUnaryHandler(LoadProcedure, s.Load, opts...))
	mux.Handle(ProvideInputProcedure, connect.NewUnaryHandler(ProvideInputProcedure, s.ProvideInput, opts...))
	mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, s.Run, opts...))
	mux.Handle(DriveProcedure, connect.NewUnaryHandler(DriveProcedure, s.Drive, opts...))
	mux.Handle(SnapshotProcedure, connect.NewUnaryHandler(SnapshotProcedure, s.Snapshot, opts...))
	mux.Handle(RestoreProcedure, connect.NewUnaryHandler(RestoreProcedure, s.Restore, opts...))
	mux.Handle(DisassembleProcedure, connect.NewUnaryHandler(DisassembleProcedure, s.Disassemble, opts...))
	mux.Handle(DestroyProcedure, connect.NewUnaryHandler(DestroyProcedure, s.Destroy, opts...))
	return "/" + SessionServiceName + "/", mux
}

// Load creates a session running a program.
func (s *SessionService) Load(
	ctx context.Context,
	req *connect.Request[LoadRequest],
) (*connect.Response[LoadResponse], error) {
	program, hash, err := s.resolveProgram(ctx, req.Msg.Program, req.Msg.ProgramHash)
	if err != nil {
		return nil, connectError(err)
	}

	session := s.sessions.Create(req.Msg.Name, hash, intcode.Load(program))
	if err := s.sessions.Checkpoint(ctx, session); err != nil {
		return nil, connectError(err)
	}

	log.Info("session created", "session", session.ID, "program", hash, "cells", len(program))
	return connect.NewResponse(&LoadResponse{
		SessionID:   session.ID,
		ProgramHash: hash,
		Cells:       len(program),
	}), nil
}

// ProvideInput buffers one input value for a session.
func (s *SessionService) ProvideInput(
	ctx context.Context,
	req *connect.Request[ProvideInputRequest],
) (*connect.Response[ProvideInputResponse], error) {
	session, err := s.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	result, err := session.worker.Do(func(vm *intcode.VM) interface{} {
		return vm.ProvideInput(req.Msg.Value)
	})
	if err := firstError(result, err); err != nil {
		return nil, connectError(err)
	}
	if err := s.sessions.Checkpoint(ctx, session); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&ProvideInputResponse{}), nil
}

type runResult struct {
	out   intcode.Outcome
	ip    int64
	steps uint64
	err   error
}

// Run resumes a session until its next suspension.
func (s *SessionService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	session, err := s.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	budget := s.budget(req.Msg.MaxSteps)
	result, err := session.worker.Do(func(vm *intcode.VM) interface{} {
		out, err := driver.Next(ctx, vm, budget)
		return runResult{out: out, ip: vm.IP(), steps: vm.Steps(), err: err}
	})
	if err != nil {
		return nil, connectError(err)
	}
	r := result.(runResult)

	if cerr := s.sessions.Checkpoint(ctx, session); cerr != nil {
		log.Error("checkpoint failed", "session", session.ID, "error", cerr.Error())
	}
	if r.err != nil {
		return nil, connectError(r.err)
	}

	return connect.NewResponse(&RunResponse{
		Status: r.out.Status.String(),
		Value:  r.out.Value,
		IP:     r.ip,
		Steps:  r.steps,
	}), nil
}

type driveResult struct {
	res        *driver.Result
	unconsumed int
	err        error
}

// Drive feeds a list of inputs and runs until halt or input starvation.
func (s *SessionService) Drive(
	ctx context.Context,
	req *connect.Request[DriveRequest],
) (*connect.Response[DriveResponse], error) {
	session, err := s.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	budget := s.budget(req.Msg.MaxSteps)
	result, err := session.worker.Do(func(vm *intcode.VM) interface{} {
		d := &driver.Driver{VM: vm, Inputs: req.Msg.Inputs, MaxSteps: budget}
		res, err := d.Run(ctx)
		return driveResult{res: res, unconsumed: len(d.Inputs), err: err}
	})
	if err != nil {
		return nil, connectError(err)
	}
	r := result.(driveResult)

	if cerr := s.sessions.Checkpoint(ctx, session); cerr != nil {
		log.Error("checkpoint failed", "session", session.ID, "error", cerr.Error())
	}
	if r.err != nil && !errors.Is(r.err, driver.ErrInputExhausted) {
		return nil, connectError(r.err)
	}

	outputs := r.res.Outputs
	if outputs == nil {
		outputs = []int64{}
	}
	return connect.NewResponse(&DriveResponse{
		Outputs:    outputs,
		Status:     r.res.Status.String(),
		Steps:      r.res.Steps,
		Unconsumed: r.unconsumed,
	}), nil
}

// Snapshot returns a session's state as CBOR.
func (s *SessionService) Snapshot(
	ctx context.Context,
	req *connect.Request[SnapshotRequest],
) (*connect.Response[SnapshotResponse], error) {
	session, err := s.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	result, err := session.worker.Do(func(vm *intcode.VM) interface{} {
		state, err := vm.Snapshot()
		if err != nil {
			return err
		}
		data, err := intcode.MarshalState(state)
		if err != nil {
			return err
		}
		return data
	})
	if err := firstError(result, err); err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&SnapshotResponse{
		State:       result.([]byte),
		ProgramHash: session.ProgramHash,
	}), nil
}

// Restore starts a new session from a snapshot.
func (s *SessionService) Restore(
	ctx context.Context,
	req *connect.Request[RestoreRequest],
) (*connect.Response[RestoreResponse], error) {
	state, err := intcode.UnmarshalState(req.Msg.State)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	vm, err := intcode.Restore(state)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	session := s.sessions.Create(req.Msg.Name, req.Msg.ProgramHash, vm)
	if err := s.sessions.Checkpoint(ctx, session); err != nil {
		return nil, connectError(err)
	}
	log.Info("session restored from snapshot", "session", session.ID)
	return connect.NewResponse(&RestoreResponse{SessionID: session.ID}), nil
}

// Disassemble lists a session's memory or a program text.
func (s *SessionService) Disassemble(
	ctx context.Context,
	req *connect.Request[DisassembleRequest],
) (*connect.Response[DisassembleResponse], error) {
	if req.Msg.SessionID == "" {
		if req.Msg.Program == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("sessionId or program is required"))
		}
		program, err := image.Parse(req.Msg.Program)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return connect.NewResponse(&DisassembleResponse{
			Listing: intcode.Disassemble(program),
		}), nil
	}

	session, err := s.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	result, err := session.worker.Do(func(vm *intcode.VM) interface{} {
		return &DisassembleResponse{
			Listing: intcode.DisassembleWithName(vm.Memory(), session.ID),
			IP:      vm.IP(),
		}
	})
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(result.(*DisassembleResponse)), nil
}

// Destroy ends a session and drops its checkpoint.
func (s *SessionService) Destroy(
	ctx context.Context,
	req *connect.Request[DestroyRequest],
) (*connect.Response[DestroyResponse], error) {
	if _, err := s.lookup(ctx, req.Msg.SessionID); err != nil {
		return nil, err
	}
	if err := s.sessions.Destroy(ctx, req.Msg.SessionID); err != nil {
		return nil, connectError(err)
	}
	log.Info("session destroyed", "session", req.Msg.SessionID)
	return connect.NewResponse(&DestroyResponse{}), nil
}

// lookup resolves a session ID, returning a connect error.
func (s *SessionService) lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("sessionId is required"))
	}
	session, err := s.sessions.Lookup(ctx, id)
	if err != nil {
		return nil, connectError(err)
	}
	return session, nil
}

func (s *SessionService) resolveProgram(ctx context.Context, text, hash string) ([]int64, string, error) {
	switch {
	case text != "" && hash != "":
		return nil, "", errInvalid("program and programHash are mutually exclusive")
	case text != "":
		program, err := image.Parse(text)
		if err != nil {
			return nil, "", err
		}
		if s.db == nil {
			return program, store.Hash(program), nil
		}
		h, err := s.db.PutProgram(ctx, "", program)
		return program, h, err
	case hash != "":
		if s.db == nil {
			return nil, "", errInvalid("programHash requires a program store")
		}
		program, err := s.db.GetProgram(ctx, hash)
		return program, hash, err
	default:
		return nil, "", errInvalid("program or programHash is required")
	}
}

func (s *SessionService) budget(requested uint64) uint64 {
	if requested == 0 || (s.maxSteps > 0 && requested > s.maxSteps) {
		return s.maxSteps
	}
	return requested
}

// errInvalid marks a malformed request.
type errInvalid string

func (e errInvalid) Error() string { return string(e) }

// firstError merges a worker error with an error returned as the value.
func firstError(value interface{}, err error) error {
	if err != nil {
		return err
	}
	if verr, ok := value.(error); ok {
		return verr
	}
	return nil
}

// connectError maps domain errors onto connect codes.
func connectError(err error) error {
	var (
		parseErr *image.ParseError
		invalid  errInvalid
		fault    *intcode.Fault
	)
	switch {
	case errors.As(err, &parseErr), errors.Is(err, image.ErrEmpty), errors.As(err, &invalid),
		errors.Is(err, intcode.ErrInputPending):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.As(err, &fault):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, driver.ErrStepBudget):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, ErrWorkerStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
