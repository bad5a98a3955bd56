package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// StartRun scans dir and dispatches classification using credential.
func (c *Client) StartRun(dir, credential string) (*StartRunResponse, error) {
	var resp StartRunResponse
	if err := c.call("StartRun", StartRunRequest{Dir: dir, Credential: credential}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopRun stops the live watcher of the current run.
func (c *Client) StopRun() (*StopRunResponse, error) {
	var resp StopRunResponse
	if err := c.call("StopRun", StopRunRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCandidates lists the screenshots in dir.
func (c *Client) ListCandidates(dir string) (*ListCandidatesResponse, error) {
	var resp ListCandidatesResponse
	if err := c.call("ListCandidates", ListCandidatesRequest{Dir: dir}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListFolders lists the subfolders of dir.
func (c *Client) ListFolders(dir string) (*ListFoldersResponse, error) {
	var resp ListFoldersResponse
	if err := c.call("ListFolders", ListFoldersRequest{Dir: dir}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Apply moves original to destination.
func (c *Client) Apply(original, destination string) (*MoveResponse, error) {
	var resp MoveResponse
	if err := c.call("Apply", ApplyRequest{Original: original, Destination: destination}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Approve applies the outstanding proposal id.
func (c *Client) Approve(id, baseDir string) (*MoveResponse, error) {
	var resp MoveResponse
	if err := c.call("Approve", ApproveRequest{ID: id, BaseDir: baseDir}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reject drops the outstanding proposal id.
func (c *Client) Reject(id string) (*RejectResponse, error) {
	var resp RejectResponse
	if err := c.call("Reject", RejectRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refine requests a subcategory of parent for the file at path.
func (c *Client) Refine(path, parent, credential string) (*RefineResponse, error) {
	var resp RefineResponse
	req := RefineRequest{Path: path, Parent: parent, Credential: credential}
	if err := c.call("Refine", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Proposals lists outstanding proposals.
func (c *Client) Proposals(merge bool) (*ProposalsResponse, error) {
	var resp ProposalsResponse
	if err := c.call("Proposals", ProposalsRequest{Merge: merge}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Conflicts reports colliding proposal destinations.
func (c *Client) Conflicts(baseDir string) (*ConflictsResponse, error) {
	var resp ConflictsResponse
	if err := c.call("Conflicts", ConflictsRequest{BaseDir: baseDir}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns events after req.Since, optionally long-polling.
func (c *Client) Events(req EventsRequest) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.call("Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists journaled moves, newest first.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Undo reverts the newest active move.
func (c *Client) Undo() (*MoveResponse, error) {
	var resp MoveResponse
	if err := c.call("Undo", UndoRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
