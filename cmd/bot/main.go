// Command bot is a headless viewer: it connects to the viewer endpoint, flies
// in a straight line and reports how many chunk meshes arrive.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"voxelforge.dev/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/viewer", "viewer ws url")
		name  = flag.String("name", "bot", "client name")
		speed = flag.Float64("speed", 20, "flight speed in blocks per second")
		dirX  = flag.Float64("dir_x", 1, "flight direction x")
		dirZ  = flag.Float64("dir_z", 0, "flight direction z")
		hz    = flag.Int("hz", 10, "position updates per second")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Meshes:          true,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		logger.Fatalf("expected WELCOME, got %s", msg)
	}
	p := welcome.WorldParams
	logger.Printf("WELCOME session=%s world=%s seed=%d render=%d", welcome.SessionID, p.WorldID, p.Seed, p.RenderDistance)

	meshes := make(chan protocol.MeshReadyMsg, 256)
	go func() {
		defer close(meshes)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeMeshReady:
				var m protocol.MeshReadyMsg
				if json.Unmarshal(msg, &m) == nil {
					meshes <- m
				}
			case protocol.TypeError:
				var e protocol.ErrorMsg
				if json.Unmarshal(msg, &e) == nil {
					logger.Printf("ERROR %s: %s", e.Code, e.Message)
				}
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	if *hz <= 0 {
		*hz = 10
	}
	dir := mgl32.Vec3{float32(*dirX), 0, float32(*dirZ)}
	if dir.Len() == 0 {
		dir = mgl32.Vec3{1, 0, 0}
	}
	step := dir.Normalize().Mul(float32(*speed) / float32(*hz))
	pos := mgl32.Vec3{0.5, 80, 0.5}

	ticker := time.NewTicker(time.Second / time.Duration(*hz))
	defer ticker.Stop()
	report := time.NewTicker(5 * time.Second)
	defer report.Stop()

	var received, vertices int
	for {
		select {
		case <-stop:
			logger.Printf("done: meshes=%d vertices=%d pos=%v", received, vertices, pos)
			return
		case m, ok := <-meshes:
			if !ok {
				logger.Printf("connection closed: meshes=%d", received)
				return
			}
			received++
			vertices += m.Vertices
		case <-report.C:
			logger.Printf("pos=(%.0f,%.0f,%.0f) meshes=%d vertices=%d", pos[0], pos[1], pos[2], received, vertices)
		case <-ticker.C:
			pos = pos.Add(step)
			msg := protocol.ViewerPosMsg{
				Type:            protocol.TypeViewerPos,
				ProtocolVersion: protocol.Version,
				Pos:             [3]float32(pos),
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Printf("send VIEWER_POS: %v", err)
				return
			}
		}
	}
}
