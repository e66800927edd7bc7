package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote session service.
type Client struct {
	load         *connect.Client[LoadRequest, LoadResponse]
	provideInput *connect.Client[ProvideInputRequest, ProvideInputResponse]
	run          *connect.Client[RunRequest, RunResponse]
	drive        *connect.Client[DriveRequest, DriveResponse]
	snapshot     *connect.Client[SnapshotRequest, SnapshotResponse]
	restore      *connect.Client[RestoreRequest, RestoreResponse]
	disassemble  *connect.Client[DisassembleRequest, DisassembleResponse]
	destroy      *connect.Client[DestroyRequest, DestroyResponse]
}

// NewClient creates a client for the service at baseURL, e.g.
// "http://localhost:8741".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{withJSON()}, opts...)
	return &Client{
		load:         connect.NewClient[LoadRequest, LoadResponse](httpClient, baseURL+LoadProcedure, opts...),
		provideInput: connect.NewClient[ProvideInputRequest, ProvideInputResponse](httpClient, baseURL+ProvideInputProcedure, opts...),
		run:          connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, opts...),
		drive:        connect.NewClient[DriveRequest, DriveResponse](httpClient, baseURL+DriveProcedure, opts...),
		snapshot:     connect.NewClient[SnapshotRequest, SnapshotResponse](httpClient, baseURL+SnapshotProcedure, opts...),
		restore:      connect.NewClient[RestoreRequest, RestoreResponse](httpClient, baseURL+RestoreProcedure, opts...),
		disassemble:  connect.NewClient[DisassembleRequest, DisassembleResponse](httpClient, baseURL+DisassembleProcedure, opts...),
		destroy:      connect.NewClient[DestroyRequest, DestroyResponse](httpClient, baseURL+DestroyProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) Load(ctx context.Context, req *LoadRequest) (*LoadResponse, error) {
	return call(ctx, c.load, req)
}

func (c *Client) ProvideInput(ctx context.Context, req *ProvideInputRequest) (*ProvideInputResponse, error) {
	return call(ctx, c.provideInput, req)
}

func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	return call(ctx, c.run, req)
}

func (c *Client) Drive(ctx context.Context, req *DriveRequest) (*DriveResponse, error) {
	return call(ctx, c.drive, req)
}

func (c *Client) Snapshot(ctx context.Context, req *SnapshotRequest) (*SnapshotResponse, error) {
	return call(ctx, c.snapshot, req)
}

func (c *Client) Restore(ctx context.Context, req *RestoreRequest) (*RestoreResponse, error) {
	return call(ctx, c.restore, req)
}

func (c *Client) Disassemble(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	return call(ctx, c.disassemble, req)
}

func (c *Client) Destroy(ctx context.Context, req *DestroyRequest) (*DestroyResponse, error) {
	return call(ctx, c.destroy, req)
}
