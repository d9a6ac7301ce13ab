// ABOUTME: Websocket remote control endpoint for the player
// ABOUTME: Accepts seek/stop/next commands and pushes status snapshots
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/chipdec/internal/discovery"
	"github.com/Resonate-Protocol/chipdec/internal/player"
	"github.com/Resonate-Protocol/chipdec/internal/protocol"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendBuffer    = 32
)

// Player is what the server controls
type Player interface {
	Seek(target time.Duration)
	Next()
	Stop()
	Status() player.Status
	Subscribe() (<-chan player.Status, func())
}

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
}

// Server exposes a player over websocket
type Server struct {
	config   Config
	serverID string
	player   Player
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	clients   map[string]*conn
	clientsMu sync.RWMutex
	closed    bool // set once shutdown begins; guards wg.Add

	wg sync.WaitGroup
}

// conn is one connected controller
type conn struct {
	id       string
	name     string
	ws       *websocket.Conn
	sendChan chan []byte
}

// NewServer creates a remote control server for p
func NewServer(config Config, p Player) *Server {
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		player:   p,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Non-browser controllers send no Origin header
				return r.Header.Get("Origin") == ""
			},
		},
		clients: make(map[string]*conn),
	}
	s.mux.HandleFunc(discovery.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	var mdnsManager *discovery.Manager
	if s.config.EnableMDNS {
		mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
		})
		if err := mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
		defer mdnsManager.Stop()
	}

	statusCtx, stopStatus := context.WithCancel(ctx)
	defer stopStatus()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.broadcastStatus(statusCtx)
	}()

	addr := fmt.Sprintf(":%d", s.config.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	log.Printf("Remote control listening on %s%s", addr, discovery.Path)

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
	case err := <-errChan:
		serverErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	s.closeAll()
	stopStatus()
	s.wg.Wait()

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// broadcastStatus forwards player snapshots to every client
func (s *Server) broadcastStatus(ctx context.Context) {
	updates, cancel := s.player.Subscribe()
	defer cancel()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			s.broadcast(protocol.TypePlayerStatus, StatusMessage(st))
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) broadcast(msgType string, payload interface{}) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		log.Printf("Error encoding %s: %v", msgType, err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.sendChan <- data:
		default:
			log.Printf("Dropping %s for %s: send buffer full", msgType, c.name)
		}
	}
}

func (s *Server) closeAll() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.closed = true
	for _, c := range s.clients {
		c.ws.Close()
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New remote connection from %s", r.RemoteAddr)
	s.handleConnection(ws)
}

// handleConnection runs the handshake and the read loop for one client
func (s *Server) handleConnection(ws *websocket.Conn) {
	defer ws.Close()

	hello, err := readHello(ws)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		writeDirect(ws, protocol.TypeServerError, protocol.Error{Error: "bad_hello", Message: err.Error()})
		return
	}

	c := &conn{
		id:       hello.ClientID,
		name:     hello.Name,
		ws:       ws,
		sendChan: make(chan []byte, sendBuffer),
	}

	s.clientsMu.Lock()
	if s.closed {
		s.clientsMu.Unlock()
		writeDirect(ws, protocol.TypeServerError, protocol.Error{
			Error:   "shutting_down",
			Message: "Server is shutting down",
		})
		return
	}
	if _, exists := s.clients[c.id]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected, rejecting duplicate", c.id)
		writeDirect(ws, protocol.TypeServerError, protocol.Error{
			Error:   "duplicate_client_id",
			Message: "Client ID already connected",
		})
		return
	}
	s.clients[c.id] = c
	s.wg.Add(1) // clientWriter
	s.clientsMu.Unlock()

	log.Printf("Remote hello: %s (ID: %s)", c.name, c.id)

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		close(c.sendChan)
		log.Printf("Remote disconnected: %s", c.name)
	}()

	s.send(c, protocol.TypeServerHello, protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
	})
	s.send(c, protocol.TypePlayerStatus, StatusMessage(s.player.Status()))

	go func() {
		defer s.wg.Done()
		clientWriter(c)
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		s.handleMessage(c, data)
	}
}

// handleMessage applies one command from a client
func (s *Server) handleMessage(c *conn, data []byte) {
	in, err := protocol.Decode(data)
	if err != nil {
		log.Printf("Bad message from %s: %v", c.name, err)
		return
	}

	switch in.Type {
	case protocol.TypePlayerSeek:
		var seek protocol.Seek
		if err := in.Into(&seek); err != nil {
			s.send(c, protocol.TypeServerError, protocol.Error{Error: "bad_payload", Message: err.Error()})
			return
		}
		log.Printf("%s: seek to %dms", c.name, seek.PositionMs)
		s.player.Seek(time.Duration(seek.PositionMs) * time.Millisecond)
	case protocol.TypePlayerNext:
		log.Printf("%s: next", c.name)
		s.player.Next()
	case protocol.TypePlayerStop:
		log.Printf("%s: stop", c.name)
		s.player.Stop()
	case protocol.TypePlayerStatus:
		s.send(c, protocol.TypePlayerStatus, StatusMessage(s.player.Status()))
	default:
		log.Printf("Unknown message type: %s", in.Type)
		s.send(c, protocol.TypeServerError, protocol.Error{Error: "unknown_type", Message: in.Type})
	}
}

// send queues a message for c without blocking
func (s *Server) send(c *conn, msgType string, payload interface{}) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		log.Printf("Error encoding %s: %v", msgType, err)
		return
	}
	select {
	case c.sendChan <- data:
	default:
		log.Printf("Dropping %s for %s: send buffer full", msgType, c.name)
	}
}

// clientWriter sends messages to the client
func clientWriter(c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.sendChan:
			if !ok {
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

func readHello(ws *websocket.Conn) (protocol.ClientHello, error) {
	var hello protocol.ClientHello

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("error reading hello: %w", err)
	}
	ws.SetReadDeadline(time.Time{})

	in, err := protocol.Decode(data)
	if err != nil {
		return hello, err
	}
	if in.Type != protocol.TypeClientHello {
		return hello, fmt.Errorf("expected %s, got %s", protocol.TypeClientHello, in.Type)
	}
	if err := in.Into(&hello); err != nil {
		return hello, err
	}
	if hello.ClientID == "" {
		return hello, errors.New("client hello missing client_id")
	}
	if hello.Name == "" {
		return hello, errors.New("client hello missing name")
	}
	return hello, nil
}

// writeDirect writes before the writer goroutine exists
func writeDirect(ws *websocket.Conn, msgType string, payload interface{}) {
	data, err := json.Marshal(protocol.Message{Type: msgType, Payload: payload})
	if err != nil {
		return
	}
	ws.SetWriteDeadline(time.Now().Add(writeDeadline))
	ws.WriteMessage(websocket.TextMessage, data)
}

// StatusMessage converts a player snapshot to its wire form
func StatusMessage(st player.Status) protocol.Status {
	msg := protocol.Status{
		State:      string(st.State),
		Path:       st.Path,
		Backend:    st.Backend,
		Session:    st.Session,
		SampleRate: st.Format.SampleRate,
		Seekable:   st.Seekable,
		PositionMs: st.Position.Milliseconds(),
		Title:      st.Title,
		Artist:     st.Artist,
		Album:      st.Album,
		Index:      st.Index,
		Queued:     st.Queued,
		Error:      st.Err,
	}
	if st.Length.Valid {
		length := st.Length.Ms
		msg.LengthMs = &length
	}
	return msg
}
