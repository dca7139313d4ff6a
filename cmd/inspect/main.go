// Command inspect prints a chunk offline: a top-down height map of the column,
// the block histogram and the stats of the mesh the server would build.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"

	"voxelforge.dev/internal/persistence/chunkfile"
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/mesh"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/sim/world/terrain/gen"
	"voxelforge.dev/internal/sim/world/terrain/noise"
)

func main() {
	var (
		seed    = flag.Int64("seed", 0, "world seed")
		cx      = flag.Int("cx", 0, "chunk x")
		cy      = flag.Int("cy", 3, "chunk y")
		cz      = flag.Int("cz", 0, "chunk z")
		dataDir = flag.String("data", "", "world data dir; saved chunks override generation (optional)")
		noColor = flag.Bool("no_color", false, "disable colored output")
	)
	flag.Parse()
	if *noColor {
		color.NoColor = true
	}

	src := noise.New(*seed)
	var files *chunkfile.Dir
	if *dataDir != "" {
		d, err := chunkfile.Open(filepath.Join(*dataDir, "chunks"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "open chunks:", err)
			os.Exit(1)
		}
		files = d
	}

	c := chunk.Coord{X: *cx, Y: *cy, Z: *cz}
	ch, origin, err := loadOrGenerate(files, src, c)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	var nb mesh.Neighbors
	for i, n := range c.Neighbors() {
		nb[i], _, err = loadOrGenerate(files, src, n)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load neighbor:", err)
			os.Exit(1)
		}
	}

	color.New(color.Bold).Printf("chunk %s seed=%d source=%s digest=%s\n", c, *seed, origin, ch.Digest())
	printHeightMap(os.Stdout, src, c)
	printHistogram(os.Stdout, histogram(ch))
	printMesh(os.Stdout, mesh.Build(ch, nb))
}

func loadOrGenerate(files *chunkfile.Dir, src *noise.Source, c chunk.Coord) (*chunk.Chunk, string, error) {
	if files != nil {
		ch, err := files.Load(c)
		switch {
		case err == nil:
			return ch, "disk", nil
		case errors.Is(err, chunkfile.ErrNotFound):
		case errors.Is(err, chunkfile.ErrCorrupt):
			color.Yellow("chunk %s is corrupt on disk; showing generated terrain", c)
		default:
			return nil, "", err
		}
	}
	return gen.Generate(c, src), "generated", nil
}

// printHeightMap draws one cell per column: the surface height relative to
// the chunk's vertical span, colored by biome.
func printHeightMap(out io.Writer, src *noise.Source, c chunk.Coord) {
	ox, oy, oz := c.Origin()
	plains := color.New(color.FgGreen)
	desert := color.New(color.FgYellow)
	above := color.New(color.FgCyan)
	below := color.New(color.FgHiBlack)

	fmt.Fprintf(out, "surface heights (y %d..%d):\n", oy, oy+chunk.Size-1)
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			wx, wz := ox+x, oz+z
			h := gen.SurfaceHeight(src, wx, wz)
			switch {
			case h >= oy+chunk.Size:
				above.Fprint(out, " ^^")
			case h < oy:
				below.Fprint(out, " ..")
			case src.BiomeAt(wx, wz) == noise.Desert:
				desert.Fprintf(out, " %2d", h-oy)
			default:
				plains.Fprintf(out, " %2d", h-oy)
			}
		}
		fmt.Fprintln(out)
	}
}

type blockCount struct {
	Block block.Type
	Count int
}

func histogram(ch *chunk.Chunk) []blockCount {
	var counts [256]int
	for _, b := range ch.Bytes() {
		counts[b]++
	}
	out := make([]blockCount, 0, 16)
	for id, n := range counts {
		if n > 0 {
			out = append(out, blockCount{Block: block.FromID(byte(id)), Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Block < out[j].Block
	})
	return out
}

func printHistogram(out io.Writer, hist []blockCount) {
	name := color.New(color.FgHiWhite)
	fmt.Fprintln(out, "blocks:")
	for _, bc := range hist {
		pct := 100 * float64(bc.Count) / chunk.Volume
		name.Fprintf(out, "  %-16s", bc.Block)
		fmt.Fprintf(out, " %5d  %5.1f%%\n", bc.Count, pct)
	}
}

func printMesh(out io.Writer, m *mesh.Mesh) {
	if m.Empty() {
		color.New(color.FgHiBlack).Fprintln(out, "mesh: empty")
		return
	}
	lo, hi := m.Bounds()
	fmt.Fprintf(out, "mesh: vertices=%d triangles=%d quads=%d billboards=%d bounds=(%.1f,%.1f,%.1f)..(%.1f,%.1f,%.1f)\n",
		m.VertexCount(), m.TriangleCount(), m.Quads, m.Billboards,
		lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
}
