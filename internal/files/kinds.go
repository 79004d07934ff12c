package files

import (
	"fmt"

	"github.com/seqforge/taskkit/internal/metainfo"
)

// Kind names a platform file type. The kind fixes which storage keys a task
// may stage data under; using any other key is an error at call time, not a
// silent no-op on the backend.
type Kind string

const (
	Raw             Kind = "raw"
	Report          Kind = "report"
	Index           Kind = "index"
	Auxiliary       Kind = "auxiliary"
	UnalignedReads  Kind = "unaligned-reads"
	AlignedReads    Kind = "aligned-reads"
	Variation       Kind = "variation"
	ReferenceGenome Kind = "reference-genome"
)

var kindStorageKeys = map[Kind][]string{
	Raw:             {metainfo.KeyRawLocation},
	Report:          {metainfo.KeyDataLocation},
	Index:           {metainfo.KeyDataLocation},
	Auxiliary:       {metainfo.KeyDataLocation},
	UnalignedReads:  {metainfo.KeyReadsLocation},
	AlignedReads:    {metainfo.KeyDataLocation},
	Variation:       {metainfo.KeyDataLocation},
	ReferenceGenome: {metainfo.KeyDataLocation},
}

// StorageKeys returns the storage keys declared for the kind.
func (k Kind) StorageKeys() ([]string, error) {
	keys, ok := kindStorageKeys[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return keys, nil
}
