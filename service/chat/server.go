package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tripchat/logger"
	"tripchat/tools/errs"
	"tripchat/tools/ids"
)

const maxFrameSize = 64 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conf holds the gateway's per-connection knobs.
type Conf struct {
	GatewayID     string
	SendQueueSize int
	WriteTimeout  time.Duration
}

// Server is the gateway: it ties authentication, the connection
// registry and the room router together per physical connection.
type Server struct {
	conf     Conf
	verifier CredentialVerifier
	reg      *Registry
	router   *Router
	disp     *Dispatcher
	tracker  UserTracker // optional
}

func NewServer(conf Conf, verifier CredentialVerifier, reg *Registry, router *Router, tracker UserTracker) *Server {
	s := &Server{
		conf:     conf,
		verifier: verifier,
		reg:      reg,
		router:   router,
		disp:     NewDispatcher(),
		tracker:  tracker,
	}
	s.disp.Register(&joinHandler{rt: router})
	s.disp.Register(&leaveHandler{rt: router})
	s.disp.Register(&sendMessageHandler{rt: router})
	s.disp.Register(&deleteMessageHandler{rt: router})
	s.disp.Register(&typingHandler{rt: router, typing: true})
	s.disp.Register(&typingHandler{rt: router, typing: false})
	return s
}

func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) Router() *Router     { return s.router }

// HandleWS runs one connection end to end. Authentication happens
// inside the handshake and fails closed: a request without a valid
// token never becomes a websocket.
func (s *Server) HandleWS(c *gin.Context) {
	identity, err := s.authenticate(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code": errs.AuthFailedError,
			"msg":  "authentication failed",
		})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	conn := newConn(ids.GenerateString(), *identity, ws, s.conf.SendQueueSize, s.conf.WriteTimeout)
	go conn.writePump()

	if first := s.reg.Register(conn); first && s.tracker != nil {
		s.tracker.UserOnline(identity.ID)
	}
	logger.Infof("[ws] connected user=%s conn=%s", identity.ID, conn.ID)

	s.readLoop(conn, ws)

	// teardown: channel memberships, registry, tracker, socket
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.router.Disconnect(ctx, conn)
	if last := s.reg.Unregister(conn); last && s.tracker != nil {
		s.tracker.UserOffline(identity.ID)
	}
	conn.Close()
	logger.Infof("[ws] disconnected user=%s conn=%s", identity.ID, conn.ID)
}

// authenticate resolves the handshake credentials, trying each
// candidate in precedence order (access token, then refresh fallback).
func (s *Server) authenticate(r *http.Request) (*Identity, error) {
	tokens := ExtractTokens(r)
	if len(tokens) == 0 {
		return nil, errs.ErrAuthFailed.WithDetail("no token provided")
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var lastErr error
	for _, tok := range tokens {
		identity, err := s.verifier.Verify(ctx, tok)
		if err == nil {
			return identity, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Server) readLoop(conn *Conn, ws *websocket.Conn) {
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debugf("[ws] peer closed conn=%s", conn.ID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s", conn.ID)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", conn.ID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrame(data)
		if perr != nil {
			_ = conn.Send(buildErrorFrame("parse", errs.ErrArgs.WithDetail(perr.Error())))
			continue
		}

		// Failures stay local to the one operation: the originating
		// client gets an error frame, nothing is broadcast, the
		// connection lives on.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if derr := s.disp.Dispatch(ctx, conn, f); derr != nil {
			logger.Debugf("[ws] op failed event=%s conn=%s: %v", f.Event, conn.ID, derr)
			_ = conn.Send(buildErrorFrame(f.Event, derr))
		}
		cancel()
	}
}
