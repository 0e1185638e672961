// Package wallets holds the curated registry of tracked whale wallets.
// The default set ships embedded in the binary; an external YAML file with
// the same shape can override it at startup.
package wallets

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"whale-screener/internal/domain"
)

//go:embed registry.yaml
var embeddedRegistry []byte

type registryFile struct {
	Wallets []domain.WalletInfo `yaml:"wallets"`
}

// Registry is an immutable, address-indexed wallet set.
type Registry struct {
	byAddress map[string]domain.WalletInfo
	ordered   []domain.WalletInfo // account value descending
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the registry embedded in the binary.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = parse(embeddedRegistry)
	})
	return defaultReg, defaultErr
}

// LoadFile reads a registry override from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if len(file.Wallets) == 0 {
		return nil, fmt.Errorf("registry contains no wallets")
	}

	byAddress := make(map[string]domain.WalletInfo, len(file.Wallets))
	ordered := make([]domain.WalletInfo, 0, len(file.Wallets))
	for i, w := range file.Wallets {
		if w.Address == "" {
			return nil, fmt.Errorf("registry entry %d: empty address", i)
		}
		addr := strings.ToLower(w.Address)
		if _, dup := byAddress[addr]; dup {
			return nil, fmt.Errorf("registry entry %d: duplicate address %s", i, addr)
		}
		w.Address = addr
		byAddress[addr] = w
		ordered = append(ordered, w)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AccountValue > ordered[j].AccountValue
	})

	return &Registry{byAddress: byAddress, ordered: ordered}, nil
}

// Len returns the number of tracked wallets.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// All returns every wallet, largest account value first.
func (r *Registry) All() []domain.WalletInfo {
	out := make([]domain.WalletInfo, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get looks up a wallet by address, case-insensitively.
func (r *Registry) Get(address string) (domain.WalletInfo, bool) {
	w, ok := r.byAddress[strings.ToLower(address)]
	return w, ok
}

// Select returns up to limit wallets of the given entity, largest first.
// Empty entity matches everything; limit <= 0 means no cap.
func (r *Registry) Select(entity domain.Entity, limit int) []domain.WalletInfo {
	out := make([]domain.WalletInfo, 0, len(r.ordered))
	for _, w := range r.ordered {
		if entity != "" && w.Entity != entity {
			continue
		}
		out = append(out, w)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
