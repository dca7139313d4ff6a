package ws

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelforge.dev/internal/protocol"
	"voxelforge.dev/internal/sim/world"
	"voxelforge.dev/internal/sim/world/logic/rates"
)

const (
	outQueue = 64

	// Viewer updates are limited per session; the world only samples one
	// position per tick anyway.
	posWindowMS = 1000
	posMax      = 120
)

type Server struct {
	world  *world.World
	params protocol.WorldParams
	log    *log.Logger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[uuid.UUID]chan []byte
}

func NewServer(w *world.World, params protocol.WorldParams, logger *log.Logger) *Server {
	s := &Server{
		world:  w,
		params: params,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[uuid.UUID]chan []byte{},
	}
	return s
}

// Pump forwards mesh events from the world to every session that asked for
// them, until ctx is done or events is closed. Slow sessions lose events.
func (s *Server) Pump(ctx context.Context, events <-chan world.MeshEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b, err := json.Marshal(protocol.MeshReadyMsg{
				Type:            protocol.TypeMeshReady,
				ProtocolVersion: protocol.Version,
				Tick:            ev.Tick,
				EntityID:        ev.EntityID.String(),
				Chunk:           [3]int{ev.Coord.X, ev.Coord.Y, ev.Coord.Z},
				Version:         ev.Version,
				Vertices:        ev.Vertices,
				Triangles:       ev.Triangles,
				Quads:           ev.Quads,
				Billboards:      ev.Billboards,
			})
			if err != nil {
				continue
			}
			s.mu.Lock()
			for _, out := range s.subs {
				sendLatest(out, b)
			}
			s.mu.Unlock()
		}
	}
}

// Sessions reports the number of sessions subscribed to mesh events.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, hello, ok := s.handshake(r.Context(), conn)
		if !ok {
			return
		}

		out := make(chan []byte, outQueue)
		if hello.Meshes {
			s.mu.Lock()
			s.subs[sessionID] = out
			s.mu.Unlock()
			defer func() {
				s.mu.Lock()
				delete(s.subs, sessionID)
				s.mu.Unlock()
			}()
		}
		if s.log != nil {
			s.log.Printf("viewer session %s (%s) connected", sessionID, hello.ClientName)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		var limit rates.Window
		start := time.Now()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				sendError(out, protocol.ErrProtoBadRequest, "invalid json")
				continue
			}
			if base.Type != protocol.TypeViewerPos {
				sendError(out, protocol.ErrProtoBadRequest, "unexpected message type: "+base.Type)
				continue
			}
			var pos protocol.ViewerPosMsg
			if err := json.Unmarshal(msg, &pos); err != nil {
				sendError(out, protocol.ErrProtoBadRequest, "bad VIEWER_POS")
				continue
			}
			if pos.ProtocolVersion != protocol.Version {
				sendError(out, protocol.ErrProtoVersion, "bad protocol_version")
				continue
			}
			v := mgl32.Vec3(pos.Pos)
			if !finite(v) {
				sendError(out, protocol.ErrBadRequest, "pos must be finite")
				continue
			}
			nowMS := uint64(time.Since(start).Milliseconds())
			if ok, _ := limit.Allow(nowMS, posWindowMS, posMax); !ok {
				sendError(out, protocol.ErrRateLimit, "too many VIEWER_POS messages")
				continue
			}
			s.world.SetViewer(v)
		}

		if s.log != nil {
			s.log.Printf("viewer session %s disconnected", sessionID)
		}
	}
}

// handshake reads HELLO and answers WELCOME. The seed is read from the
// running world, since NewGame may have replaced it since startup.
func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (uuid.UUID, protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return uuid.Nil, hello, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		reject(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return uuid.Nil, hello, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		reject(conn, protocol.ErrProtoBadRequest, "bad HELLO")
		return uuid.Nil, hello, false
	}
	if hello.ProtocolVersion != protocol.Version {
		reject(conn, protocol.ErrProtoVersion, "bad protocol_version")
		return uuid.Nil, hello, false
	}
	if hello.ClientName == "" {
		hello.ClientName = "viewer"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := s.world.RequestState(ctx)
	if err != nil {
		reject(conn, protocol.ErrWorldBusy, "world unavailable")
		return uuid.Nil, hello, false
	}
	params := s.params
	params.Seed = st.Seed

	id := uuid.New()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       id.String(),
		WorldParams:     params,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return uuid.Nil, hello, false
	}
	return id, hello, true
}

// reject sends an ERROR and closes the connection with a policy violation.
func reject(conn *websocket.Conn, code, msg string) {
	_ = writeJSON(conn, protocol.NewError(code, msg))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg), time.Now().Add(time.Second))
}

func sendError(out chan []byte, code, msg string) {
	b, err := json.Marshal(protocol.NewError(code, msg))
	if err != nil {
		return
	}
	sendLatest(out, b)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
