package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

// memBlob backs both sides of the blob interface with one in-memory map.
type memBlob struct {
	objects map[string][]byte
	// truncate serves reads short to simulate a corrupted upload.
	truncate int
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte)}
}

func (m *memBlob) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = buf
	return nil
}

func (m *memBlob) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	buf, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.truncate > 0 && m.truncate < len(buf) {
		buf = buf[:m.truncate]
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (m *memBlob) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for path, buf := range m.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{Path: path, Size: int64(len(buf))})
		}
	}
	return infos, nil
}

type stubTradeSource struct {
	trades []domain.Trade
}

func (s *stubTradeSource) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	return s.trades, nil
}

func sampleTrades() []domain.Trade {
	return []domain.Trade{
		{ID: "t1", EdgeID: "e1", ProfitLamports: 500_000},
		{ID: "t2", EdgeID: "e2", ProfitLamports: -25_000},
	}
}

func TestArchiveTradesRoundTrip(t *testing.T) {
	blob := newMemBlob()
	arch := NewArchiver(blob, blob, &stubTradeSource{trades: sampleTrades()}, nil)

	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	count, err := arch.ArchiveTrades(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	buf, ok := blob.objects["archive/trades/2026-08.jsonl"]
	if !ok {
		t.Fatalf("archive object missing, stored: %v", blob.objects)
	}
	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("archive has %d lines, want 2", len(lines))
	}
}

func TestArchiveTradesVerificationFailure(t *testing.T) {
	blob := newMemBlob()
	blob.truncate = 3
	arch := NewArchiver(blob, blob, &stubTradeSource{trades: sampleTrades()}, nil)

	_, err := arch.ArchiveTrades(context.Background(), time.Now())
	if err == nil {
		t.Fatal("truncated archive passed verification")
	}
	if !strings.Contains(err.Error(), "verify") {
		t.Fatalf("error = %v, want a verification failure", err)
	}
}

func TestArchiveTradesWithoutReader(t *testing.T) {
	blob := newMemBlob()
	arch := NewArchiver(blob, nil, &stubTradeSource{trades: sampleTrades()}, nil)

	count, err := arch.ArchiveTrades(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ArchiveTrades without reader: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestArchiveTradesEmpty(t *testing.T) {
	blob := newMemBlob()
	arch := NewArchiver(blob, blob, &stubTradeSource{}, nil)

	count, err := arch.ArchiveTrades(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if len(blob.objects) != 0 {
		t.Fatalf("empty archive uploaded: %v", blob.objects)
	}
}
