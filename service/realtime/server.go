package realtime

import (
	"context"
	"net/http"
	"time"

	"HelpLink/logger"
	midsec "HelpLink/middleware/security"
	"HelpLink/service/storage"
	"HelpLink/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server wires the registry, dispatcher and ingestion pipeline behind the
// HTTP surface: a WebSocket endpoint, an SSE endpoint, and the control-plane
// routes SSE clients use in place of a bidirectional stream.
type Server struct {
	reg         *Registry
	disp        *Dispatcher
	pipe        *Pipeline
	verify      midsec.VerifyFunc
	nodeID      string
	presenceTTL time.Duration
}

func NewServer(reg *Registry, pipe *Pipeline, verify midsec.VerifyFunc, nodeID string, presenceTTL time.Duration) *Server {
	s := &Server{
		reg:         reg,
		disp:        NewDispatcher(),
		pipe:        pipe,
		verify:      verify,
		nodeID:      nodeID,
		presenceTTL: presenceTTL,
	}
	// Sweeper evictions skip the transport-close paths, so presence cleanup
	// hangs off the registry directly.
	reg.SetEvictHook(s.MarkOffline)
	return s
}

func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) Disp() *Dispatcher   { return s.disp }
func (s *Server) Pipe() *Pipeline     { return s.pipe }
func (s *Server) NodeID() string      { return s.nodeID }

// VerifyToken validates a bearer credential and returns the user id.
func (s *Server) VerifyToken(token string) (string, error) {
	if s.verify == nil {
		return "", errs.ErrAuthFailed.WithDetail("no verifier configured").Wrap()
	}
	return s.verify(token)
}

// MarkOnline / MarkOffline write best-effort presence marks; a Redis outage
// must never affect the connection itself.
func (s *Server) MarkOnline(userID string) {
	if userID == "" || !storage.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := storage.PresenceOnline(ctx, userID, s.nodeID, s.presenceTTL); err != nil {
		logger.Debug("presence online failed", zap.String("userId", userID), zap.Error(err))
	}
}

func (s *Server) MarkOffline(userID string) {
	if userID == "" || !storage.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := storage.PresenceOffline(ctx, userID); err != nil {
		logger.Debug("presence offline failed", zap.String("userId", userID), zap.Error(err))
	}
}

// Routes mounts all realtime endpoints on the router. The control-plane
// group and the SSE stream require a bearer credential; the WebSocket
// endpoint admits anonymously and authenticates over the wire.
func (s *Server) Routes(r *gin.Engine) {
	authMW := midsec.Middleware(midsec.VerifyFunc(s.VerifyToken))

	r.GET("/realtime/ws", s.HandleWS)
	r.GET("/realtime/sse", authMW, s.HandleSSE)
	r.GET("/realtime/health", s.HandleHealth)

	grp := r.Group("/realtime", authMW)
	grp.POST("/join-room", s.HandleJoinRoom)
	grp.POST("/leave-room", s.HandleLeaveRoom)
	grp.POST("/send-message", s.HandleSendMessage)
	grp.GET("/messages/:helpRequestId", s.HandleHistory)
}

// ===== WebSocket =====

// HandleWS upgrades, admits the connection (optionally pre-authenticated by
// a ?token= credential), and runs the read loop. Malformed or unknown frames
// are answered with an error envelope and never close the connection.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade error: %v", err)
		return
	}

	userID := ""
	if token := c.Query("token"); token != "" {
		if uid, verr := s.VerifyToken(token); verr == nil {
			userID = uid
		}
	}

	t := NewWSTransport(ws, s.reg.conf.SendQueueSize)
	connID, err := s.reg.Admit(t, userID)
	if err != nil {
		_ = t.Send(ErrorEnvelope(err))
		_ = t.Close()
		return
	}
	s.MarkOnline(userID)
	logger.Info("ws connected", zap.String("connId", connID), zap.String("userId", userID))

	ctx := &Context{S: s}
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.reg.Touch(connID)

		env, perr := ParseEnvelope(data)
		if perr != nil {
			logger.Infof("[HandleWS] bad frame connId=%s err=%v", connID, perr)
			s.reg.SendToConn(connID, ErrorEnvelope(perr))
			continue
		}
		if herr := s.disp.Dispatch(ctx, env, connID); herr != nil {
			logger.Infof("[HandleWS] handler err connId=%s type=%s err=%v", connID, env.Type, herr)
			s.reg.SendToConn(connID, ErrorEnvelope(herr))
		}
	}

	info, _ := s.reg.Get(connID)
	s.reg.Remove(connID)
	s.MarkOffline(info.UserID)
	logger.Info("ws closed", zap.String("connId", connID))
}

// ===== Server-Sent Events =====

// HandleSSE admits an authenticated streaming connection and blocks until
// either side closes. Client-to-server traffic for SSE connections flows
// through the control-plane endpoints instead.
func (s *Server) HandleSSE(c *gin.Context) {
	userID := midsec.UserID(c)

	t, err := NewSSETransport(c.Writer, c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	connID, err := s.reg.Admit(t, userID)
	if err != nil {
		_ = t.Send(ErrorEnvelope(err))
		_ = t.Close()
		return
	}
	s.MarkOnline(userID)
	logger.Info("sse connected", zap.String("connId", connID), zap.String("userId", userID))

	select {
	case <-t.Done():
	case <-c.Request.Context().Done():
	}
	s.reg.Remove(connID)
	s.MarkOffline(userID)
	logger.Info("sse closed", zap.String("connId", connID))
}

// ===== Control plane =====

type roomRequest struct {
	HelpRequestID string `json:"helpRequestId" binding:"required"`
	ConnectionID  string `json:"connectionId" binding:"required"`
}

func (s *Server) HandleJoinRoom(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "helpRequestId and connectionId are required"})
		return
	}
	if !s.authorizeConn(c, req.ConnectionID) {
		return
	}
	roomID := HelpRequestRoom(req.HelpRequestID)
	if err := s.reg.JoinRoom(req.ConnectionID, roomID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown connection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "roomId": roomID})
}

func (s *Server) HandleLeaveRoom(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "helpRequestId and connectionId are required"})
		return
	}
	if !s.authorizeConn(c, req.ConnectionID) {
		return
	}
	roomID := HelpRequestRoom(req.HelpRequestID)
	if err := s.reg.LeaveRoom(req.ConnectionID, roomID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown connection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "roomId": roomID})
}

type sendRequest struct {
	HelpRequestID string `json:"helpRequestId" binding:"required"`
	Message       string `json:"message" binding:"required"`
}

func (s *Server) HandleSendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "helpRequestId and message are required"})
		return
	}
	senderID := midsec.UserID(c)
	msg, err := s.pipe.HandleSend(c.Request.Context(), senderID, req.HelpRequestID, req.Message)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "messageId": msg.ID})
	case errs.CodeOf(err) == errs.CodeValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
	}
}

// HandleHistory serves the history-fetch collaborator: messages a subscriber
// missed while disconnected.
func (s *Server) HandleHistory(c *gin.Context) {
	helpRequestID := c.Param("helpRequestId")
	msgs, err := s.pipe.Messages.History(c.Request.Context(), helpRequestID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// HandleHealth reports registry occupancy for operational tooling.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"activeConnections": s.reg.Count(),
		"timestamp":         time.Now().UnixMilli(),
		"node":              s.nodeID,
	})
}

// authorizeConn rejects control-plane operations on a connection the caller
// does not own. Room membership may only be granted to the authenticated
// owner of the connection.
func (s *Server) authorizeConn(c *gin.Context, connID string) bool {
	info, ok := s.reg.Get(connID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown connection"})
		return false
	}
	if info.UserID == "" || info.UserID != midsec.UserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "connection not owned by caller"})
		return false
	}
	return true
}
