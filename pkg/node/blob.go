package node

import (
	"github.com/cespare/xxhash/v2"
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/vdom"
)

// BlobBuilder assembles a blob.
type BlobBuilder struct {
	blob    vdom.Blob
	hashSet bool
}

// NewBlob starts a blob with a fresh identifier.
func NewBlob(ids *id.Allocator) *BlobBuilder {
	return &BlobBuilder{blob: vdom.Blob{ID: ids.Next(), MimeType: "application/octet-stream"}}
}

// ID reuses an existing identifier so the frontend keeps its copy when the
// hash is unchanged.
func (b *BlobBuilder) ID(v id.ID) *BlobBuilder {
	b.blob.ID = v
	return b
}

// MimeType sets the MIME type.
func (b *BlobBuilder) MimeType(mime string) *BlobBuilder {
	b.blob.MimeType = mime
	return b
}

// Data sets the payload.
func (b *BlobBuilder) Data(data []byte) *BlobBuilder {
	b.blob.Data = data
	return b
}

// Hash sets an explicit content hash.
func (b *BlobBuilder) Hash(h uint64) *BlobBuilder {
	b.blob.Hash = h
	b.hashSet = true
	return b
}

// Build returns the blob. Without an explicit hash, the xxhash of the data
// is used.
func (b *BlobBuilder) Build() *vdom.Blob {
	out := b.blob
	if !b.hashSet {
		out.Hash = xxhash.Sum64(out.Data)
	}
	return &out
}
