package metainfo

// Reserved keys. The "seqforge" prefix marks keys the platform owns; user
// metadata lives outside it.
const (
	Namespace = "seqforge"

	KeyName           = "seqforge:name"
	KeyDescription    = "seqforge:description"
	KeyAccession      = "seqforge:accession"
	KeyCreationDate   = "seqforge:dateCreated"
	KeyLastUpdateDate = "seqforge:file.last-update"
	KeyExternalLinks  = "seqforge:links"
	KeyProgressInfo   = "seqforge:progressInfo"
	KeyInitWarning    = "seqforge.initialization:warning"

	KeyStorageDataSize = "seqforge:storageDataSize"
	KeyIndexDataSize   = "seqforge:indexDataSize"

	KeyDataLocation = "seqforge.location:data"
	KeyRawLocation  = "seqforge.rawFile:data"

	KeyToolArguments = "seqforge:tool.arguments"

	KeyChecksumMark         = "seqforge.checksum:markedForTests"
	ChecksumActualKeyPrefix = "seqforge.checksum.actual:"
)

// Biological sample keys shared by the bio file kinds.
const (
	KeyOrganism        = "seqforge.bio:organism"
	KeyMethod          = "seqforge.bio:method"
	KeyReferenceGenome = "seqforge.bio:referenceGenome"
	KeyStrain          = "seqforge.bio:strain-breed-cultivar"
	KeySex             = "seqforge.bio:sex"
	KeyReadsLocation   = "seqforge.location:reads"
	KeyHasPairedReads  = "seqforge.bio:hasPairedReads"
)

const toolVersionPrefix = "seqforge:tool.version:"

// ToolVersionKey returns the reserved key declaring the version of a
// toolset, e.g. ToolVersionKey("samtools") -> "seqforge:tool.version:samtools".
func ToolVersionKey(toolset string) string {
	return toolVersionPrefix + toolset
}

// ChecksumKey returns the key holding the recorded checksum for a storage key.
func ChecksumKey(storageKey string) string {
	return ChecksumActualKeyPrefix + storageKey
}

// Flag bits attached to metainfo keys; they describe how the platform treats
// a key across the file lifecycle.
type Flag uint32

const (
	FlagRequiredForInitialization Flag = 1 << iota
	FlagFrozenAfterInitialization
	FlagSetByInitialization
	FlagUsedAsDataSource
	FlagFile
	FlagRequiredForCompleteness
	FlagSingle
	FlagMultiple
)

// FlagInitializationParameter marks keys the task reads and the platform
// freezes once initialization starts.
const FlagInitializationParameter = FlagRequiredForInitialization | FlagFrozenAfterInitialization
