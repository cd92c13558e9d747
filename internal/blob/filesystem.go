package blob

import (
	"penguindash/internal/infra/blob/fs"
)

// NewFilesystem returns a store rooted at root, or ./blobdata when empty.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
