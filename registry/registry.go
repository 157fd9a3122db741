// Package registry defines the engine's two external collaborators:
// the asset registry that owns item records and the content generator
// that produces each epoch's minted payload. Both are consumed behind
// interfaces; an in-process implementation backs tests and single-node
// deployments.
package registry

// TraitIndices is the tuple of trait choices selected for a minted
// item. The indices are meaningful only to the content pipeline; the
// auction engine treats them as opaque.
type TraitIndices struct {
	Body    uint8 `json:"body"`
	Hat     uint8 `json:"hat"`
	Clothes uint8 `json:"clothes"`
	Glasses uint8 `json:"glasses"`
}

// ContentGenerator produces the minted byte payload and trait tuple for
// an epoch. Implementations must be pure: the same (epoch, identity)
// always yields the same output.
type ContentGenerator interface {
	Generate(epoch uint64, identity string) (content []byte, traits TraitIndices, err error)
}

// AssetRegistry is the external item-ownership service. The engine only
// ever creates items into its group, transfers them to auction winners
// and minter redeemers, and attaches royalty metadata to the group.
type AssetRegistry interface {
	// CreateGroup registers a new item group controlled by authority
	// and returns its reference.
	CreateGroup(authority string) (string, error)

	// CreateItem mints an item with the given content into group, owned
	// by owner, and returns its reference.
	CreateItem(owner, group string, content []byte) (string, error)

	// TransferItem moves an item to a new owner. fromAuthority must be
	// the current owner.
	TransferItem(itemRef, fromAuthority, to string) error

	// AttachRoyalties records royalty metadata (in basis points, split
	// across payees) on an item or group reference.
	AttachRoyalties(ref string, basisPoints uint64, payees []string) error
}
