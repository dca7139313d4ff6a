package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelforge.dev/internal/protocol"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip marshals a Go message and decodes it generically so the schema
// sees exactly what goes over the wire.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"viewer1",
	  "meshes":true
	}`), &hello)
	validate(compileSchema(t, "hello.schema.json"), hello)

	var pos any
	_ = json.Unmarshal([]byte(`{"type":"VIEWER_POS","protocol_version":"1.0","pos":[8.5,70,-3.25]}`), &pos)
	validate(compileSchema(t, "viewer_pos.schema.json"), pos)
}

func TestSchemas_GoMessagesConform(t *testing.T) {
	cases := []struct {
		schema string
		msg    any
	}{
		{"hello.schema.json", protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "v"}},
		{"welcome.schema.json", protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       "6f1c1f9e-8a53-4c55-a0a4-2c0b1b8f8f10",
			WorldParams: protocol.WorldParams{
				WorldID:           "overworld",
				Seed:              42,
				TickRateHz:        20,
				ChunkSize:         [3]int{16, 16, 16},
				RenderDistance:    16,
				DespawnDistance:   18,
				WorldHeightChunks: 16,
			},
		}},
		{"viewer_pos.schema.json", protocol.ViewerPosMsg{Type: protocol.TypeViewerPos, ProtocolVersion: protocol.Version, Pos: [3]float32{1, 2, 3}}},
		{"mesh_ready.schema.json", protocol.MeshReadyMsg{
			Type:            protocol.TypeMeshReady,
			ProtocolVersion: protocol.Version,
			Tick:            7,
			EntityID:        "6f1c1f9e-8a53-4c55-a0a4-2c0b1b8f8f10",
			Chunk:           [3]int{-1, 0, 2},
			Version:         1,
			Vertices:        24,
			Triangles:       12,
			Quads:           6,
		}},
		{"error.schema.json", protocol.NewError(protocol.ErrRateLimit, "slow down")},
	}
	for _, tc := range cases {
		t.Run(tc.schema, func(t *testing.T) {
			if err := compileSchema(t, tc.schema).Validate(roundTrip(t, tc.msg)); err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}

func TestSchemas_RejectBadViewerPos(t *testing.T) {
	s := compileSchema(t, "viewer_pos.schema.json")
	var bad any
	_ = json.Unmarshal([]byte(`{"type":"VIEWER_POS","protocol_version":"1.0","pos":[1,2]}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("expected two-component pos to be rejected")
	}
}
