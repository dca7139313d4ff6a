package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd queries the save index read-only. It does not need the server to be
// stopped.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "overworld", "world id (ignored with -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	kind := fs.String("kind", "", "fault kind filter (faults)")
	_ = fs.Parse(args)

	q := "saves"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, *worldID, "index.sqlite")
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "meta":
		rows, err := db.Query(`SELECT key,value FROM meta ORDER BY key`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			}
			if err := rows.Scan(&r.Key, &r.Value); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		exitOnRowsErr(rows)

	case "saves":
		rows, err := db.Query(`SELECT cx,cy,cz,tick,bytes,digest,saves,recorded_at FROM chunk_saves ORDER BY tick DESC, cx, cy, cz LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Coord      [3]int `json:"coord"`
				Tick       int64  `json:"tick"`
				Bytes      int    `json:"bytes"`
				Digest     string `json:"digest"`
				Saves      int    `json:"saves"`
				RecordedAt string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Coord[0], &r.Coord[1], &r.Coord[2], &r.Tick, &r.Bytes, &r.Digest, &r.Saves, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		exitOnRowsErr(rows)

	case "faults":
		query := `SELECT tick,cx,cy,cz,kind,detail,recorded_at FROM chunk_faults ORDER BY id DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*kind) != "" {
			query = `SELECT tick,cx,cy,cz,kind,detail,recorded_at FROM chunk_faults WHERE kind=? ORDER BY id DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*kind), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick       int64  `json:"tick"`
				Coord      [3]int `json:"coord"`
				Kind       string `json:"kind"`
				Detail     string `json:"detail"`
				RecordedAt string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Tick, &r.Coord[0], &r.Coord[1], &r.Coord[2], &r.Kind, &r.Detail, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		exitOnRowsErr(rows)

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-limit N] [-kind K] meta|saves|faults")
		os.Exit(2)
	}
}

func exitOnRowsErr(rows *sql.Rows) {
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}
