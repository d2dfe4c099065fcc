package transfer

const (
	// ChunkSize is the largest binary frame the chunker emits.
	ChunkSize = 64000

	// PartitionSize is how many bytes the sender pushes before waiting for
	// the receiver to acknowledge.
	PartitionSize = 1_000_000

	// progressStep is the minimum progress gain between reports to the
	// sender.
	progressStep = 0.01

	// DefaultMime is used when a header carries no mime type.
	DefaultMime = "application/octet-stream"
)

// Control message types, carried in non-binary frames.
const (
	MessageTypeHeader            = "header"
	MessageTypePartition         = "partition"
	MessageTypePartitionReceived = "partition-received"
	MessageTypeProgress          = "progress"
	MessageTypeTransferComplete  = "transfer-complete"
	MessageTypeText              = "text"
)
