// Package collagepb holds the wire messages and service descriptors for
// the collage-commit protocol's five tags: PREPARE, VOTE, COMMIT, ABORT,
// ACK. It is hand-expressed in the shape protoc-gen-go / protoc-gen-go-grpc
// would emit from a collage.proto source, but marshals over a JSON codec
// (see RegisterCodec) instead of the wire protobuf encoding, since no
// protoc toolchain runs as part of this build.
package collagepb

// PrepareRequest is the PREPARE message, coordinator -> participant: the
// transaction id, the candidate composite image, and the filenames this
// participant is asked to contribute and lock.
type PrepareRequest struct {
	TxnId      string   `json:"txn_id"`
	ImageBytes []byte   `json:"image_bytes"`
	Filenames  []string `json:"filenames"`
}

func (m *PrepareRequest) GetTxnId() string       { return m.TxnId }
func (m *PrepareRequest) GetImageBytes() []byte  { return m.ImageBytes }
func (m *PrepareRequest) GetFilenames() []string { return m.Filenames }

// VoteRequest is the VOTE message, participant -> coordinator.
type VoteRequest struct {
	TxnId string `json:"txn_id"`
	Vote  bool   `json:"vote"`
	From  string `json:"from"`
}

func (m *VoteRequest) GetTxnId() string { return m.TxnId }
func (m *VoteRequest) GetVote() bool    { return m.Vote }
func (m *VoteRequest) GetFrom() string  { return m.From }

// CommitRequest is the COMMIT message, coordinator -> participant.
type CommitRequest struct {
	TxnId string `json:"txn_id"`
}

func (m *CommitRequest) GetTxnId() string { return m.TxnId }

// AbortRequest is the ABORT message, coordinator -> participant.
type AbortRequest struct {
	TxnId string `json:"txn_id"`
}

func (m *AbortRequest) GetTxnId() string { return m.TxnId }

// AckRequest is the ACK message, participant -> coordinator. The
// reference implementation's isCommit flag is intentionally omitted
// (spec open question: the receiver never used it).
type AckRequest struct {
	TxnId string `json:"txn_id"`
	From  string `json:"from"`
}

func (m *AckRequest) GetTxnId() string { return m.TxnId }
func (m *AckRequest) GetFrom() string  { return m.From }

// Ack is the empty RPC-level acknowledgement returned by every method
// here; it only confirms delivery to the transport, never a protocol
// decision. The protocol-level vote/ack still travels as its own message
// in the opposite direction.
type Ack struct{}
