package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/cloudquest/internal/dungeon"
	"github.com/lawnchairsociety/cloudquest/internal/logger"
	"github.com/lawnchairsociety/cloudquest/internal/throttle"
)

// wsMessage is the envelope for every frame sent to a harness.
type wsMessage struct {
	Type     string        `json:"type"`
	Room     *dungeon.Room `json:"room,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Commands []string      `json:"commands,omitempty"`
}

var wsCommands = []string{
	"generate [level] [skill] [standard|boss|treasure]",
	"help",
	"quit",
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	ip := s.proxies.clientIP(r)

	if !s.connLimiter.TryAcquire(ip) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", ip)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket origin rejected",
					"origin", origin,
					"host", r.Host,
					"client_ip", ip)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		logger.Debug("WebSocket upgrade failed", "error", err, "client_ip", ip)
		s.connLimiter.Release(ip)
		return
	}

	s.serveWebSocket(r.Context(), NewWebSocketClient(conn, s.cfg.WebSocket.MaxMessageSize), ip)
}

// serveWebSocket runs the command loop for one harness until it disconnects.
func (s *Server) serveWebSocket(ctx context.Context, client *WebSocketClient, ip string) {
	defer func() {
		s.connLimiter.Release(ip)
		client.Close()
	}()

	remote := client.RemoteAddr()
	total, unique := s.connLimiter.Stats()
	logger.Info("WebSocket harness connected",
		"remote_addr", remote,
		"client_ip", ip,
		"open_sessions", total,
		"unique_ips", unique)

	window := throttle.NewWindow(s.throttleCfg)

	for {
		line, err := client.ReadLine()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read ended", "error", err, "client_ip", ip)
			}
			break
		}

		reply, done := s.dispatch(ctx, line, ip, window)
		if err := client.WriteJSON(reply); err != nil {
			logger.Debug("WebSocket write failed", "error", err, "client_ip", ip)
			break
		}
		if done {
			break
		}
	}

	logger.Info("WebSocket harness disconnected", "remote_addr", remote, "client_ip", ip)
}

// dispatch executes one command line and reports whether the session should end.
func (s *Server) dispatch(ctx context.Context, line, ip string, window *throttle.Window) (wsMessage, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return wsMessage{Type: "error", Detail: "empty command"}, false
	}

	switch strings.ToLower(fields[0]) {
	case "generate", "gen":
		if res := window.Allow(); !res.Allowed {
			return wsMessage{Type: "error", Detail: fmt.Sprintf("too many requests, wait %ds", res.WaitSeconds)}, false
		}
		req, err := parseGenerateArgs(fields[1:])
		if err != nil {
			return wsMessage{Type: "error", Detail: err.Error()}, false
		}
		room, err := s.generate(ctx, req, ip)
		if err != nil {
			return wsMessage{Type: "error", Detail: err.Error()}, false
		}
		return wsMessage{Type: "room", Room: &room}, false
	case "help", "?":
		return wsMessage{Type: "help", Commands: wsCommands}, false
	case "quit", "exit":
		return wsMessage{Type: "bye"}, true
	default:
		return wsMessage{Type: "error", Detail: fmt.Sprintf("unknown command %q, try help", fields[0])}, false
	}
}

// parseGenerateArgs reads the optional level, skill and type arguments.
func parseGenerateArgs(args []string) (dungeon.Request, error) {
	req := dungeon.Request{PlayerLevel: 1, SkillScore: 0.5, DungeonType: dungeon.TypeStandard}

	if len(args) > 3 {
		return req, errors.New("usage: " + wsCommands[0])
	}
	if len(args) > 0 {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return req, fmt.Errorf("level %q is not a number", args[0])
		}
		req.PlayerLevel = level
	}
	if len(args) > 1 {
		skill, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return req, fmt.Errorf("skill %q is not a number", args[1])
		}
		req.SkillScore = skill
	}
	if len(args) > 2 {
		req.DungeonType = strings.ToLower(args[2])
	}
	return req, nil
}
