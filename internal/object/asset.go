package object

import "github.com/roach88/cloudrec/internal/ir"

// AssetTypeName is the default object type name of asset wrappers.
const AssetTypeName = "Asset"

// Asset wraps a binary asset stored out of band. A property whose declared
// object type is the asset marker holds a *Asset (or nil).
type Asset struct {
	ref ir.IRAsset
}

// NewAsset wraps an asset reference.
func NewAsset(ref ir.IRAsset) *Asset {
	return &Asset{ref: ref}
}

// Ref returns the inner asset reference.
func (a *Asset) Ref() ir.IRAsset {
	return a.ref
}

// ObjectType implements Object.
func (a *Asset) ObjectType() string {
	return AssetTypeName
}

// Get implements Object. An asset exposes file_url, checksum and size.
func (a *Asset) Get(property string) (any, bool) {
	switch property {
	case "file_url":
		return a.ref.FileURL, true
	case "checksum":
		return a.ref.Checksum, true
	case "size":
		return a.ref.Size, true
	default:
		return nil, false
	}
}
