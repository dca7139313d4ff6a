package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelforge.dev/internal/observerproto"
	"voxelforge.dev/internal/sim/encoding"
	"voxelforge.dev/internal/sim/world"
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

// Server streams resident chunk voxels around the viewer to debug clients.
type Server struct {
	world  *world.World
	params observerproto.WorldParams
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, params observerproto.WorldParams, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		world:  w,
		params: params,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		st, err := s.world.RequestState(ctx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		params := s.params
		params.Seed = st.Seed
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         st.WorldID,
			Tick:            st.Tick,
			WorldParams:     params,
			BlockPalette:    block.Names(),
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader loop: allow SUBSCRIBE updates; the latest one wins.
		updates := make(chan observerproto.SubscribeMsg, 1)
		go func() {
			defer cancel()
			for {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				next, ok := parseSubscribe(msg)
				if !ok {
					continue
				}
				select {
				case <-updates:
				default:
				}
				updates <- next
			}
		}()

		known := map[chunk.Coord]string{}
		ticker := time.NewTicker(time.Duration(sub.IntervalMS) * time.Millisecond)
		defer ticker.Stop()

	loop:
		for {
			if err := s.pushFrame(ctx, conn, sub, known); err != nil {
				if ctx.Err() == nil {
					s.log.Printf("observer: push frame: %v", err)
				}
				break
			}
			select {
			case <-ctx.Done():
				break loop
			case next := <-updates:
				sub = next
				ticker.Reset(time.Duration(sub.IntervalMS) * time.Millisecond)
			case <-ticker.C:
			}
		}

		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

// pushFrame sends one FRAME followed by its CHUNK_VOXELS and CHUNK_EVICT
// messages, and updates known to what the client now holds.
func (s *Server) pushFrame(ctx context.Context, conn *websocket.Conn, sub observerproto.SubscribeMsg, known map[chunk.Coord]string) error {
	obs, err := s.world.RequestObserve(ctx, sub.ChunkRadius, sub.MaxChunks, known)
	if err != nil {
		return err
	}

	present := make(map[chunk.Coord]bool, len(obs.Chunks))
	var voxels []observerproto.ChunkVoxelsMsg
	for _, cv := range obs.Chunks {
		present[cv.Coord] = true
		if cv.Blocks == nil {
			continue
		}
		voxels = append(voxels, observerproto.ChunkVoxelsMsg{
			Type:            observerproto.TypeChunkVoxels,
			ProtocolVersion: observerproto.Version,
			Chunk:           [3]int{cv.Coord.X, cv.Coord.Y, cv.Coord.Z},
			Digest:          cv.Digest,
			Encoding:        encoding.RLEName,
			Data:            encoding.EncodeRLE(cv.Blocks),
		})
	}
	var evicted []chunk.Coord
	for c := range known {
		if !present[c] {
			evicted = append(evicted, c)
		}
	}

	m := s.world.Metrics()
	frame := observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		Tick:            obs.Tick,
		Viewer:          obs.Viewer,
		ViewerChunk:     [3]int{obs.ViewerChunk.X, obs.ViewerChunk.Y, obs.ViewerChunk.Z},
		Resident:        m.LoadedChunks,
		Dirty:           m.DirtyChunks,
		PendingLoads:    m.PendingLoads,
		MeshQueue:       m.MeshQueue,
		Saplings:        m.Saplings,
		Crops:           m.Crops,
		Sent:            len(voxels),
		Evicted:         len(evicted),
	}
	if err := writeJSON(conn, frame); err != nil {
		return err
	}
	for i := range voxels {
		if err := writeJSON(conn, voxels[i]); err != nil {
			return err
		}
		c := chunk.Coord{X: voxels[i].Chunk[0], Y: voxels[i].Chunk[1], Z: voxels[i].Chunk[2]}
		known[c] = voxels[i].Digest
	}
	for _, c := range evicted {
		if err := writeJSON(conn, observerproto.ChunkEvictMsg{
			Type:            observerproto.TypeChunkEvict,
			ProtocolVersion: observerproto.Version,
			Chunk:           [3]int{c.X, c.Y, c.Z},
		}); err != nil {
			return err
		}
		delete(known, c)
	}
	return nil
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.ChunkRadius <= 0 {
		sub.ChunkRadius = 6
	}
	if sub.ChunkRadius > 32 {
		sub.ChunkRadius = 32
	}
	if sub.MaxChunks <= 0 {
		sub.MaxChunks = 1024
	}
	if sub.MaxChunks > 16384 {
		sub.MaxChunks = 16384
	}
	if sub.IntervalMS <= 0 {
		sub.IntervalMS = 500
	}
	if sub.IntervalMS < 100 {
		sub.IntervalMS = 100
	}
	if sub.IntervalMS > 5000 {
		sub.IntervalMS = 5000
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
