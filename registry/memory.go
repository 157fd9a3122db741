package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type item struct {
	owner   string
	group   string
	content []byte
}

type royalty struct {
	basisPoints uint64
	payees      []string
}

// MemoryRegistry is an in-process AssetRegistry. Item and group
// references are random UUIDs, so they are opaque to callers exactly
// like a remote registry's would be.
type MemoryRegistry struct {
	mu        sync.Mutex
	items     map[string]*item
	groups    map[string]string // ref -> authority
	royalties map[string]royalty
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		items:     make(map[string]*item),
		groups:    make(map[string]string),
		royalties: make(map[string]royalty),
	}
}

func (r *MemoryRegistry) CreateGroup(authority string) (string, error) {
	if authority == "" {
		return "", fmt.Errorf("empty group authority")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := uuid.NewString()
	r.groups[ref] = authority
	return ref, nil
}

func (r *MemoryRegistry) CreateItem(owner, group string, content []byte) (string, error) {
	if owner == "" {
		return "", fmt.Errorf("empty item owner")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if group != "" {
		if _, ok := r.groups[group]; !ok {
			return "", fmt.Errorf("unknown group %s", group)
		}
	}

	ref := uuid.NewString()
	r.items[ref] = &item{
		owner:   owner,
		group:   group,
		content: append([]byte(nil), content...),
	}
	return ref, nil
}

func (r *MemoryRegistry) TransferItem(itemRef, fromAuthority, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[itemRef]
	if !ok {
		return fmt.Errorf("unknown item %s", itemRef)
	}
	if it.owner != fromAuthority {
		return fmt.Errorf("item %s is not owned by %s", itemRef, fromAuthority)
	}
	it.owner = to
	return nil
}

func (r *MemoryRegistry) AttachRoyalties(ref string, basisPoints uint64, payees []string) error {
	if basisPoints > 10_000 {
		return fmt.Errorf("royalty basis points %d exceed 10000", basisPoints)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, isItem := r.items[ref]
	_, isGroup := r.groups[ref]
	if !isItem && !isGroup {
		return fmt.Errorf("unknown reference %s", ref)
	}
	r.royalties[ref] = royalty{
		basisPoints: basisPoints,
		payees:      append([]string(nil), payees...),
	}
	return nil
}

// Owner reports the current owner of an item. Test helper; a remote
// registry would expose the same lookup.
func (r *MemoryRegistry) Owner(itemRef string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[itemRef]
	if !ok {
		return "", false
	}
	return it.owner, true
}
