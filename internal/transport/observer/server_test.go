package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelforge.dev/internal/observerproto"
	"voxelforge.dev/internal/sim/encoding"
	"voxelforge.dev/internal/sim/world"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func startObserver(t *testing.T) (*httptest.Server, *world.World) {
	t.Helper()
	w, err := world.New(world.Config{
		ID:                "obs",
		Seed:              3,
		RenderDistance:    1,
		DespawnDistance:   2,
		MaxLoadsPerTick:   9,
		WorldHeightChunks: 1,
		TickRateHz:        50,
		MeshWorkers:       1,
		Logger:            log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	srv := NewServer(w, observerproto.WorldParams{TickRateHz: 50, ChunkSize: [3]int{16, 16, 16}, WorldHeightChunks: 1}, log.New(io.Discard, "", 0))
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", srv.BootstrapHandler())
	mux.HandleFunc("/ws", srv.WSHandler())
	hs := httptest.NewServer(mux)

	t.Cleanup(func() {
		hs.Close()
		cancel()
		<-done
		w.Close()
	})
	return hs, w
}

func TestBootstrapListsPalette(t *testing.T) {
	hs, _ := startObserver(t)
	resp, err := http.Get(hs.URL + "/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.WorldID != "obs" || b.WorldParams.Seed != 3 {
		t.Fatalf("bootstrap %+v", b)
	}
	if len(b.BlockPalette) == 0 || b.BlockPalette[0] != "AIR" {
		t.Fatalf("palette %v", b.BlockPalette)
	}
}

func TestSubscribeStreamsChunkVoxels(t *testing.T) {
	hs, _ := startObserver(t)
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		ChunkRadius:     1,
		IntervalMS:      100,
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Keep reading frames until all nine columns have arrived.
	seen := map[[3]int]bool{}
	deadline := time.Now().Add(10 * time.Second)
	for len(seen) < 9 {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read (have %d chunks): %v", len(seen), err)
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type != observerproto.TypeChunkVoxels {
			continue
		}
		var cv observerproto.ChunkVoxelsMsg
		if err := json.Unmarshal(msg, &cv); err != nil {
			t.Fatalf("decode voxels: %v", err)
		}
		if seen[cv.Chunk] {
			t.Fatalf("chunk %v sent twice without changing", cv.Chunk)
		}
		blocks, err := encoding.DecodeRLE(cv.Data, chunk.Volume)
		if err != nil || len(blocks) != chunk.Volume {
			t.Fatalf("chunk %v: %d bytes, err=%v", cv.Chunk, len(blocks), err)
		}
		seen[cv.Chunk] = true
	}
}

func TestSubscribeRejectsWrongVersion(t *testing.T) {
	hs, _ := startObserver(t)
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteJSON(observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: "9.9"})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}
