package r2s3

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
)

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	EnqueuedTotal  uint64 `json:"enqueued_total"`
	CoalescedTotal uint64 `json:"coalesced_total"`
	DroppedTotal   uint64 `json:"dropped_total"`
	UploadedTotal  uint64 `json:"uploaded_total"`
	FailedTotal    uint64 `json:"failed_total"`
}

type uploader interface {
	PutFile(ctx context.Context, objectKey, localPath string) error
}

// Mirror uploads files under dataDir in the background. A path that is
// already queued is not queued again; the upload reads the file as it is
// when the worker gets to it.
type Mirror struct {
	client  uploader
	dataDir string
	prefix  string
	log     *log.Logger

	jobs    chan string
	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup

	attempts int
	backoff  time.Duration

	enqueued  atomic.Uint64
	coalesced atomic.Uint64
	dropped   atomic.Uint64
	uploaded  atomic.Uint64
	failed    atomic.Uint64
}

func NewMirror(client *Client, dataDir, prefix string, workers, queueCapacity int, logger *log.Logger) *Mirror {
	return newMirror(client, dataDir, prefix, workers, queueCapacity, logger)
}

func newMirror(client uploader, dataDir, prefix string, workers, queueCapacity int, logger *log.Logger) *Mirror {
	if workers <= 0 {
		workers = 1
	}
	if queueCapacity <= 0 {
		queueCapacity = 2048
	}
	m := &Mirror{
		client:   client,
		dataDir:  dataDir,
		prefix:   strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/"),
		log:      logger,
		jobs:     make(chan string, queueCapacity),
		pending:  map[string]struct{}{},
		attempts: 4,
		backoff:  200 * time.Millisecond,
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

// Enqueue never blocks. When the queue is full the path is dropped and
// picked up again the next time it is saved.
func (m *Mirror) Enqueue(localPath string) {
	if m == nil {
		return
	}
	m.enqueued.Inc()

	m.mu.Lock()
	if _, ok := m.pending[localPath]; ok {
		m.mu.Unlock()
		m.coalesced.Inc()
		return
	}
	m.pending[localPath] = struct{}{}
	m.mu.Unlock()

	select {
	case m.jobs <- localPath:
	default:
		m.mu.Lock()
		delete(m.pending, localPath)
		m.mu.Unlock()
		n := m.dropped.Inc()
		m.printf("mirror drop local=%s reason=queue_full dropped_total=%d", localPath, n)
	}
}

// Close drains the queue and waits for in-flight uploads.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	close(m.jobs)
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(m.jobs),
		EnqueuedTotal:  m.enqueued.Load(),
		CoalescedTotal: m.coalesced.Load(),
		DroppedTotal:   m.dropped.Load(),
		UploadedTotal:  m.uploaded.Load(),
		FailedTotal:    m.failed.Load(),
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()
	for localPath := range m.jobs {
		m.mu.Lock()
		delete(m.pending, localPath)
		m.mu.Unlock()
		m.upload(localPath)
	}
}

func (m *Mirror) upload(localPath string) {
	key, err := m.ObjectKey(localPath)
	if err != nil {
		m.failed.Inc()
		m.printf("mirror skip local=%s err=%v", localPath, err)
		return
	}
	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		lastErr = m.client.PutFile(ctx, key, localPath)
		cancel()
		if lastErr == nil {
			m.uploaded.Inc()
			return
		}
		if attempt < m.attempts {
			time.Sleep(time.Duration(attempt*attempt) * m.backoff)
		}
	}
	m.failed.Inc()
	m.printf("mirror upload failed key=%s err=%v", key, lastErr)
}

// ObjectKey maps a file under the data directory to its bucket key.
func (m *Mirror) ObjectKey(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty local path")
	}
	absBase, err := filepath.Abs(m.dataDir)
	if err != nil {
		return "", err
	}
	absLocal, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absLocal)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside data dir %s", absLocal, absBase)
	}
	if m.prefix != "" {
		return path.Join(m.prefix, rel), nil
	}
	return rel, nil
}

func (m *Mirror) printf(format string, args ...any) {
	if m.log != nil {
		m.log.Printf(format, args...)
	}
}
