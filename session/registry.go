// Package session manages interactive PTY sessions. Each session runs a
// child process attached to a pseudo-terminal, streams its output as events
// and accepts input and resize requests until the process exits.
package session

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/paddocktools/paddock/errors"
	"github.com/paddocktools/paddock/logging"
)

// Default terminal geometry, matching a comfortably wide agent terminal.
const (
	DefaultCols uint16 = 220
	DefaultRows uint16 = 50
)

// killGracePeriod is how long a process gets to exit after SIGTERM before it
// is killed outright.
const killGracePeriod = 5 * time.Second

// readBufferSize is the chunk size for draining PTY output.
const readBufferSize = 4096

// SpawnOptions configures a new session. Zero values fall back to defaults:
// the user's shell, the registry's default directory and 220x50 geometry.
type SpawnOptions struct {
	// AgentID labels the session for event consumers.
	AgentID string
	// Command is the argv to run. Empty means $SHELL (or /bin/bash).
	Command []string
	// Dir is the working directory for the child process.
	Dir string
	// Cols and Rows set the initial terminal size.
	Cols uint16
	Rows uint16
}

// Info is a point-in-time snapshot of one session.
type Info struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Dir       string    `json:"dir"`
	Command   []string  `json:"command"`
	Cols      uint16    `json:"cols"`
	Rows      uint16    `json:"rows"`
	Alive     bool      `json:"alive"`
	CreatedAt time.Time `json:"created_at"`
}

// session is the registry's internal record of one PTY.
type session struct {
	id        string
	agentID   string
	dir       string
	command   []string
	createdAt time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	// closeOnce guards the ptmx fd; closing it unblocks a reader stuck in
	// Read.
	closeOnce sync.Once

	// done is closed by the reader goroutine once the process has been
	// reaped.
	done chan struct{}

	mu    sync.Mutex
	cols  uint16
	rows  uint16
	alive bool
}

func (s *session) closePTY() {
	s.closeOnce.Do(func() {
		_ = s.ptmx.Close()
	})
}

func (s *session) snapshot() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.id,
		AgentID:   s.agentID,
		Dir:       s.dir,
		Command:   s.command,
		Cols:      s.cols,
		Rows:      s.rows,
		Alive:     s.alive,
		CreatedAt: s.createdAt,
	}
}

// Defaults supplies fallback values for SpawnOptions fields left unset.
// Zero-value fields fall back to built-in defaults: the user's home
// directory, $SHELL (then /bin/bash) and 220x50 geometry.
type Defaults struct {
	// Dir is used when SpawnOptions.Dir is empty.
	Dir string
	// Shell is used when SpawnOptions.Command is empty.
	Shell string
	// Cols and Rows are used when the requested geometry is zero.
	Cols uint16
	Rows uint16
}

// Registry owns all live and exited sessions. Session ids are UUIDs and are
// never reused; exited sessions stay listed until the registry is discarded.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session

	sink     Sink
	defaults Defaults
	logger   *logrus.Entry
}

// NewRegistry returns a session registry publishing events to sink. A nil
// sink discards events.
func NewRegistry(sink Sink, defaults Defaults) *Registry {
	if sink == nil {
		sink = noopSink{}
	}
	return &Registry{
		sessions: make(map[string]*session),
		sink:     sink,
		defaults: defaults,
		logger:   logging.NewLogger("session"),
	}
}

// Spawn starts a new PTY session and returns its snapshot. The child runs
// with TERM=xterm-256color and inherits the daemon's environment.
func (r *Registry) Spawn(opts SpawnOptions) (Info, error) {
	argv := opts.Command
	if len(argv) == 0 {
		shell := r.defaults.Shell
		if shell == "" {
			shell = os.Getenv("SHELL")
		}
		if shell == "" {
			shell = "/bin/bash"
		}
		argv = []string{shell}
	}

	dir := opts.Dir
	if dir == "" {
		dir = r.defaults.Dir
	}
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = home
		}
	}

	cols := opts.Cols
	if cols == 0 {
		cols = r.defaults.Cols
	}
	if cols == 0 {
		cols = DefaultCols
	}
	rows := opts.Rows
	if rows == 0 {
		rows = r.defaults.Rows
	}
	if rows == 0 {
		rows = DefaultRows
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return Info{}, errors.SpawnFailed(opts.AgentID, err)
	}

	s := &session{
		id:        uuid.New().String(),
		agentID:   opts.AgentID,
		dir:       dir,
		command:   argv,
		createdAt: time.Now(),
		cmd:       cmd,
		ptmx:      ptmx,
		done:      make(chan struct{}),
		cols:      cols,
		rows:      rows,
		alive:     true,
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	go r.readLoop(s)

	r.logger.WithFields(logrus.Fields{
		"session_id": s.id,
		"agent_id":   s.agentID,
		"command":    argv[0],
		"dir":        dir,
	}).Info("Spawned PTY session")

	return s.snapshot(), nil
}

// readLoop drains PTY output into data events, then reaps the process and
// publishes a single exit event.
func (r *Registry) readLoop(s *session) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			// Output may split multi-byte sequences across reads;
			// invalid bytes are replaced rather than dropped so the
			// stream stays valid UTF-8.
			data := strings.ToValidUTF8(string(buf[:n]), "�")
			r.sink.Publish(Event{
				Topic:     DataTopic(s.id),
				SessionID: s.id,
				AgentID:   s.agentID,
				Data:      data,
			})
		}
		if err != nil {
			// EIO here means the child closed its side of the PTY.
			break
		}
	}

	exitCode := 0
	if err := s.cmd.Wait(); err != nil {
		exitCode = -1
	}
	if state := s.cmd.ProcessState; state != nil {
		exitCode = state.ExitCode()
	}

	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
	s.closePTY()
	close(s.done)

	r.sink.Publish(Event{
		Topic:     ExitTopic(s.id),
		SessionID: s.id,
		AgentID:   s.agentID,
		ExitCode:  exitCode,
	})

	r.logger.WithFields(logrus.Fields{
		"session_id": s.id,
		"exit_code":  exitCode,
	}).Info("PTY session exited")
}

func (r *Registry) get(sessionID string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.SessionNotFound(sessionID)
	}
	return s, nil
}

// Write sends input bytes to the session's terminal.
func (r *Registry) Write(sessionID string, data []byte) error {
	s, err := r.get(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	alive := s.alive
	s.mu.Unlock()
	if !alive {
		return errors.IOFailed(sessionID, os.ErrClosed)
	}

	if _, err := s.ptmx.Write(data); err != nil {
		return errors.IOFailed(sessionID, err)
	}
	return nil
}

// Resize changes the session's terminal geometry. Zero dimensions are
// rejected by the kernel, so they are normalized to 1 first.
func (r *Registry) Resize(sessionID string, cols, rows uint16) error {
	s, err := r.get(sessionID)
	if err != nil {
		return err
	}

	if cols == 0 {
		cols = 1
	}
	if rows == 0 {
		rows = 1
	}

	s.mu.Lock()
	alive := s.alive
	s.mu.Unlock()
	if !alive {
		return errors.IOFailed(sessionID, os.ErrClosed)
	}

	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return errors.IOFailed(sessionID, err)
	}

	s.mu.Lock()
	s.cols = cols
	s.rows = rows
	s.mu.Unlock()
	return nil
}

// Kill terminates the session's process. The process first gets SIGTERM and
// a grace period, then SIGKILL. The session entry remains in the registry
// with Alive false. Killing an unknown or already-exited session is a no-op.
func (r *Registry) Kill(sessionID string) error {
	s, err := r.get(sessionID)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	alive := s.alive
	s.mu.Unlock()
	if !alive {
		return nil
	}

	if proc := s.cmd.Process; proc != nil {
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			r.logger.WithError(err).WithField("session_id", sessionID).Debug("SIGTERM failed")
		}
	}

	select {
	case <-s.done:
	case <-time.After(killGracePeriod):
		r.logger.WithField("session_id", sessionID).Warn("Process ignored SIGTERM, killing")
		if proc := s.cmd.Process; proc != nil {
			_ = proc.Kill()
		}
		// Closing the PTY unblocks the reader if the kill alone did not.
		s.closePTY()
		<-s.done
	}

	return nil
}

// Get returns a snapshot of one session.
func (r *Registry) Get(sessionID string) (Info, error) {
	s, err := r.get(sessionID)
	if err != nil {
		return Info{}, err
	}
	return s.snapshot(), nil
}

// List returns snapshots of all sessions, live and exited.
func (r *Registry) List() []Info {
	r.mu.Lock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.snapshot())
	}
	return infos
}

// Shutdown kills every live session. Used on daemon exit.
func (r *Registry) Shutdown() {
	for _, info := range r.List() {
		if info.Alive {
			if err := r.Kill(info.ID); err != nil {
				r.logger.WithError(err).WithField("session_id", info.ID).Warn("Failed to kill session on shutdown")
			}
		}
	}
}
