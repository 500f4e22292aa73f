package storefront

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"stationery-storefront/internal/dto"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSnapshot is the buyer's local copy of a checkout, used to render the
// order summary after the gateway redirects back. It is never authoritative.
type OrderSnapshot struct {
	OrderID     string          `json:"orderId"`
	Items       []dto.CartItem  `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Buyer       Buyer           `json:"userDetails"`
	CreatedAt   time.Time       `json:"createdAt"`
	Status      string          `json:"status"`
}

type SnapshotStore interface {
	Save(snap *OrderSnapshot) error
	Load(orderID string) (*OrderSnapshot, error)
}

// FileSnapshotStore keeps one order_<id>.json file per checkout under dir.
type FileSnapshotStore struct {
	dir string
}

func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{dir: dir}
}

func (s *FileSnapshotStore) path(orderID string) string {
	return filepath.Join(s.dir, "order_"+filepath.Base(orderID)+".json")
}

func (s *FileSnapshotStore) Save(snap *OrderSnapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	// readers never see a partial file
	tmp := s.path(snap.OrderID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path(snap.OrderID)); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *FileSnapshotStore) Load(orderID string) (*OrderSnapshot, error) {
	b, err := os.ReadFile(s.path(orderID))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap OrderSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
