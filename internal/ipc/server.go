// Package ipc exposes the current lyric text on a unix socket so
// status-bar widgets and other local consumers can follow along with
// the overlay window. It also holds the single-instance process lock:
// the cache's one-writer-per-key assumption relies on one running
// instance.
package ipc

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "ipc").Logger()

// Server broadcasts display updates to connected clients. It implements
// the overlay Surface contract: every lyric change is pushed to all
// clients, and a newly connected client immediately receives the
// current text.
type Server struct {
	socketPath   string
	listener     net.Listener
	lockFile     *os.File
	lockFilePath string

	mu      sync.Mutex
	clients map[string]net.Conn // keyed by connection id
	header  string
	lyrics  string
}

// NewServer creates a server bound to the given socket path.
func NewServer(socketPath string) *Server {
	return &Server{
		socketPath:   socketPath,
		clients:      make(map[string]net.Conn),
		lockFilePath: socketPath + ".lock",
	}
}

// Start acquires the process lock and begins accepting clients.
func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener

	logger.Info().Str("socket_path", s.socketPath).Msg("IPC server listening")

	go s.acceptLoop()
	return nil
}

// Close stops the listener, disconnects clients, and releases the lock.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for id, conn := range s.clients {
		conn.Close()
		delete(s.clients, id)
	}
	s.mu.Unlock()

	s.releaseLock()
}

// SetTrack implements the Surface contract.
func (s *Server) SetTrack(artist, title string) {
	s.mu.Lock()
	if artist == "" && title == "" {
		s.header = ""
	} else {
		s.header = artist + " - " + title
	}
	s.mu.Unlock()
}

// SetLyrics implements the Surface contract: the new text is pushed to
// every connected client.
func (s *Server) SetLyrics(text string) {
	s.broadcast(text)
}

// SetStatus implements the Surface contract. Status lines are only
// forwarded while there is no lyric text, so a bar widget shows
// "Searching…" during a fetch but not over the lyrics themselves.
func (s *Server) SetStatus(status string) {
	s.mu.Lock()
	empty := s.lyrics == ""
	s.mu.Unlock()
	if empty {
		s.broadcast(status)
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Listener closed during shutdown.
			return
		}
		go s.handleClient(conn)
	}
}

func (s *Server) handleClient(conn net.Conn) {
	id := uuid.NewString()

	s.mu.Lock()
	s.clients[id] = conn
	initial := s.lyrics
	s.mu.Unlock()

	logger.Info().Str("client_id", id).Msg("Client connected")

	if initial != "" {
		if _, err := conn.Write([]byte(initial)); err != nil {
			logger.Warn().Str("client_id", id).Err(err).Msg("Failed to send current lyrics")
		}
	}

	// Block until the client hangs up; clients never send payload.
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
	conn.Close()
	logger.Info().Str("client_id", id).Msg("Client disconnected")
}

func (s *Server) broadcast(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lyrics = text
	payload := []byte(text)

	for id, conn := range s.clients {
		if _, err := conn.Write(payload); err != nil {
			logger.Warn().Str("client_id", id).Err(err).Msg("Dropping unreachable client")
			conn.Close()
			delete(s.clients, id)
		}
	}
}

// acquireLock takes an exclusive flock on the lock file and records this
// process id in it, refusing to start if another live instance holds it.
func (s *Server) acquireLock() error {
	if err := s.cleanStaleLock(); err != nil {
		logger.Warn().Err(err).Msg("Failed to clean stale lock file")
	}

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("another lyricpane instance is already running")
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if _, err := file.WriteString(fmt.Sprintf("%d\n", os.Getpid())); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	logger.Info().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

// cleanStaleLock removes a lock file left behind by a dead process.
func (s *Server) cleanStaleLock() error {
	content, err := os.ReadFile(s.lockFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		os.Remove(s.lockFilePath)
		return nil
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		logger.Warn().Str("content", strings.TrimSpace(string(content))).Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return nil
	}

	// kill(pid, 0) probes for existence without signalling.
	if syscall.Kill(pid, 0) != nil {
		logger.Info().Int("old_pid", pid).Msg("Lock holder is gone, removing stale lock file")
		os.Remove(s.lockFilePath)
	}
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile == nil {
		return
	}
	syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
	s.lockFile.Close()
	os.Remove(s.lockFilePath)
	logger.Info().Str("lock_file", s.lockFilePath).Msg("Released process lock")
	s.lockFile = nil
}
