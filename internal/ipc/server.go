package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"shotsort/internal/daemon"
	"shotsort/internal/logging"
)

const (
	defaultFollowWait = time.Second
	maxFollowWait     = 30 * time.Second
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerOption customizes a Server.
type ServerOption func(*service)

// WithShutdown registers the callback invoked by the Shutdown RPC.
func WithShutdown(fn func()) ServerOption {
	return func(s *service) { s.shutdown = fn }
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	for _, opt := range opts {
		opt(srv)
	}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun shotsort stop"))
	}
}

// Path returns the socket location.
func (s *Server) Path() string {
	return s.path
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) StartRun(req StartRunRequest, resp *StartRunResponse) error {
	s.logger.Debug("run start requested", logging.String("dir", req.Dir))
	started, err := s.daemon.StartRun(req.Dir, req.Credential)
	if err != nil {
		return err
	}
	resp.Message = started.Message
	resp.RunID = started.RunID
	s.logger.Info("run started via IPC",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String(logging.FieldRunID, resp.RunID))
	return nil
}

func (s *service) StopRun(_ StopRunRequest, resp *StopRunResponse) error {
	resp.Message = s.daemon.StopRun()
	s.logger.Info("run stopped via IPC",
		logging.String(logging.FieldEventType, "run_stop"))
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.shutdown == nil {
		return errors.New("shutdown not supported by this server")
	}
	s.logger.Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	// Reply before the listener goes away.
	go s.shutdown()
	resp.Stopping = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	*resp = StatusResponse{
		Running:       status.Running,
		PID:           status.PID,
		StartedAt:     status.StartedAt,
		LockPath:      status.LockFilePath,
		HistoryDBPath: status.HistoryDBPath,
		EventLogPath:  status.EventLogPath,
		RunID:         status.Run.RunID,
		RunDir:        status.Run.Dir,
		RunStartedAt:  status.Run.StartedAt,
		Watching:      status.Run.Watching,
		Credential:    status.Run.Credential,
		ActiveUnits:   status.ActiveUnits,
		InFlight:      status.InFlight,
		Concurrency:   status.Concurrency,
		Proposals:     status.Proposals,
		LastSequence:  status.LastSequence,
		Notifications: status.Notifications,
	}
	return nil
}

func (s *service) ListCandidates(req ListCandidatesRequest, resp *ListCandidatesResponse) error {
	files, err := s.daemon.ListCandidates(req.Dir)
	if err != nil {
		return err
	}
	resp.Files = files
	return nil
}

func (s *service) ListFolders(req ListFoldersRequest, resp *ListFoldersResponse) error {
	folders, err := s.daemon.ListFolders(req.Dir)
	if err != nil {
		return err
	}
	resp.Folders = folders
	return nil
}

func (s *service) Apply(req ApplyRequest, resp *MoveResponse) error {
	move, err := s.daemon.ApplyProposal(s.ctx, req.Original, req.Destination)
	if err != nil {
		return err
	}
	resp.Move = move
	return nil
}

func (s *service) Approve(req ApproveRequest, resp *MoveResponse) error {
	move, err := s.daemon.Approve(s.ctx, req.ID, req.BaseDir)
	if err != nil {
		return err
	}
	resp.Move = move
	return nil
}

func (s *service) Reject(req RejectRequest, resp *RejectResponse) error {
	entry, err := s.daemon.Reject(req.ID)
	if err != nil {
		return err
	}
	resp.Proposal = entry
	return nil
}

func (s *service) Refine(req RefineRequest, resp *RefineResponse) error {
	result, err := s.daemon.RefineSubcategory(s.ctx, req.Path, req.Parent, req.Credential)
	if err != nil {
		return err
	}
	resp.ID = result.ID
	resp.Subcategory = result.Subcategory
	return nil
}

func (s *service) Proposals(req ProposalsRequest, resp *ProposalsResponse) error {
	resp.Proposals = s.daemon.Proposals(req.Merge)
	return nil
}

func (s *service) Conflicts(req ConflictsRequest, resp *ConflictsResponse) error {
	conflicts, err := s.daemon.Conflicts(req.BaseDir)
	if err != nil {
		return err
	}
	resp.Conflicts = conflicts
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = defaultFollowWait
	}
	if wait > maxFollowWait {
		wait = maxFollowWait
	}
	ctx := s.ctx
	if req.Follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait)
		defer cancel()
	}
	evts, next, err := s.daemon.Events(ctx, req.Since, req.Limit, req.Follow)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			resp.Next = req.Since
			return nil
		}
		return err
	}
	resp.Events = evts
	resp.Next = next
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	moves, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Moves = moves
	return nil
}

func (s *service) Undo(_ UndoRequest, resp *MoveResponse) error {
	move, err := s.daemon.Undo(s.ctx)
	if err != nil {
		return err
	}
	resp.Move = move
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
