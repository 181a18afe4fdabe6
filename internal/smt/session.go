package smt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"aispverify/internal/logging"
)

// SessionSolver keeps one solver process alive and scopes each query with
// push/pop. Responses are delimited by an echoed marker.
type SessionSolver struct {
	path string
	args []string

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	nodes    chan readResult
	stop     chan struct{}
	readDone chan struct{}
	preamble string
	seq      int
}

type readResult struct {
	node Node
	err  error
}

// NewSessionSolver starts the solver process so a broken binary is reported
// at construction.
func NewSessionSolver(cfg Config) (*SessionSolver, error) {
	path, err := LookupSolver(cfg)
	if err != nil {
		return nil, err
	}
	s := &SessionSolver{path: path, args: solverArgs(cfg)}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionSolver) start() error {
	cmd := exec.Command(s.path, s.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open solver stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open solver stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start solver %s: %w", s.path, err)
	}
	logging.SolverDebug("Started solver session pid=%d", cmd.Process.Pid)

	s.cmd = cmd
	s.stdin = stdin
	s.nodes = make(chan readResult, 16)
	s.stop = make(chan struct{})
	s.readDone = make(chan struct{})
	s.preamble = ""

	go s.read(stdout, s.nodes, s.stop, s.readDone)
	return nil
}

func (s *SessionSolver) read(stdout io.Reader, nodes chan<- readResult, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(nodes)
	rd := NewReader(stdout)
	for {
		n, err := rd.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				select {
				case nodes <- readResult{err: err}:
				case <-stop:
				}
			}
			return
		}
		select {
		case nodes <- readResult{node: n}:
		case <-stop:
			return
		}
	}
}

// Check sends one query and collects responses up to its marker. A changed
// preamble resets the session first.
func (s *SessionSolver) Check(ctx context.Context, q Query) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		if err := s.start(); err != nil {
			return nil, err
		}
	}

	var b strings.Builder
	if q.Preamble != s.preamble {
		b.WriteString("(reset)\n")
		b.WriteString(q.Preamble)
		s.preamble = q.Preamble
	}
	s.seq++
	marker := fmt.Sprintf("aispv-%d", s.seq)
	b.WriteString("(push 1)\n")
	b.WriteString(q.Body)
	q.writeCheck(&b)
	b.WriteString("(pop 1)\n")
	fmt.Fprintf(&b, "(echo \"%s\")\n", marker)

	if _, err := io.WriteString(s.stdin, b.String()); err != nil {
		s.kill()
		return nil, fmt.Errorf("failed to write to solver: %w", err)
	}

	var nodes []Node
	for {
		select {
		case r, ok := <-s.nodes:
			if !ok {
				s.kill()
				return nil, errors.New("solver session ended unexpectedly")
			}
			if r.err != nil {
				s.kill()
				return nil, fmt.Errorf("malformed solver output: %w", r.err)
			}
			if !r.node.IsList && r.node.Atom == marker {
				return decodeResponse(nodes, q.Requests), nil
			}
			nodes = append(nodes, r.node)
		case <-ctx.Done():
			logging.SolverWarn("Solver query %s abandoned: %v", marker, ctx.Err())
			s.kill()
			return nil, ctx.Err()
		}
	}
}

// kill tears the process down; the next Check starts a fresh one.
func (s *SessionSolver) kill() {
	if s.cmd == nil {
		return
	}
	close(s.stop)
	_ = s.stdin.Close()
	_ = s.cmd.Process.Kill()
	_ = s.cmd.Wait()
	<-s.readDone
	s.cmd = nil
}

// Close asks the solver to exit and waits for it.
func (s *SessionSolver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return nil
	}
	_, _ = io.WriteString(s.stdin, "(exit)\n")
	_ = s.stdin.Close()
	close(s.stop)
	err := s.cmd.Wait()
	<-s.readDone
	s.cmd = nil
	logging.SolverDebug("Solver session closed")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("solver session exit: %w", err)
	}
	return nil
}
