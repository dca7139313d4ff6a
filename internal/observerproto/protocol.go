package observerproto

// Version is the observer protocol version (separate from the viewer WS protocol).
const Version = "0.1"

const (
	TypeSubscribe   = "SUBSCRIBE"
	TypeFrame       = "FRAME"
	TypeChunkVoxels = "CHUNK_VOXELS"
	TypeChunkEvict  = "CHUNK_EVICT"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ChunkRadius     int    `json:"chunk_radius"`
	MaxChunks       int    `json:"max_chunks"`
	IntervalMS      int    `json:"interval_ms,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	BlockPalette    []string    `json:"block_palette"`
}

type WorldParams struct {
	TickRateHz        int    `json:"tick_rate_hz"`
	ChunkSize         [3]int `json:"chunk_size"`
	WorldHeightChunks int    `json:"world_height_chunks"`
	Seed              int64  `json:"seed"`
	RenderDistance    int    `json:"render_distance"`
	DespawnDistance   int    `json:"despawn_distance"`
}

// Server -> Client. Sent once per subscription interval, before any chunk
// messages for that interval.
type FrameMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Viewer          [3]float32 `json:"viewer"`
	ViewerChunk     [3]int     `json:"viewer_chunk"`

	Resident     int `json:"resident"`
	Dirty        int `json:"dirty"`
	PendingLoads int `json:"pending_loads"`
	MeshQueue    int `json:"mesh_queue"`
	Saplings     int `json:"saplings"`
	Crops        int `json:"crops"`

	// Sent and Evicted count the chunk messages that follow.
	Sent    int `json:"sent"`
	Evicted int `json:"evicted"`
}

// Server -> Client. Full voxel data for a resident chunk, sent when the
// client has not seen its current digest.
// Data is the block id buffer in y*256 + z*16 + x order, encoded as named by
// Encoding (see the encoding package).
type ChunkVoxelsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Chunk           [3]int `json:"chunk"`
	Digest          string `json:"digest"`
	Encoding        string `json:"encoding"`
	Data            string `json:"data"`
}

// Server -> Client. Evict voxel data for a chunk from the client cache.
type ChunkEvictMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Chunk           [3]int `json:"chunk"`
}
