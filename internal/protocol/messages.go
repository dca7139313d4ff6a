package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// Meshes opts in to MESH_READY notifications.
	Meshes bool `json:"meshes,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	WorldID           string `json:"world_id"`
	Seed              int64  `json:"seed"`
	TickRateHz        int    `json:"tick_rate_hz"`
	ChunkSize         [3]int `json:"chunk_size"`
	RenderDistance    int    `json:"render_distance"`
	DespawnDistance   int    `json:"despawn_distance"`
	WorldHeightChunks int    `json:"world_height_chunks"`
}

// VIEWER_POS (client -> server)
type ViewerPosMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Pos             [3]float32 `json:"pos"`
}

// MESH_READY (server -> client)
type MeshReadyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	EntityID        string `json:"entity_id"`
	Chunk           [3]int `json:"chunk"`
	Version         uint64 `json:"version"`
	Vertices        int    `json:"vertices"`
	Triangles       int    `json:"triangles"`
	Quads           int    `json:"quads"`
	Billboards      int    `json:"billboards"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
