package bus

import (
	"github.com/google/uuid"
)

// StageName identifies a registered stage on the router.
type StageName string

const (
	StageIngestion    StageName = "ingestion"
	StageRetrieval    StageName = "retrieval"
	StageGeneration   StageName = "generation"
	StagePresentation StageName = "presentation"
)

// MessageKind is the closed set of envelope kinds. Every stage dispatches on
// these; adding a kind means updating each stage's dispatch switch.
type MessageKind string

const (
	KindDocumentUploaded   MessageKind = "document.uploaded"
	KindDocumentIngested   MessageKind = "document.ingested"
	KindUserQuery          MessageKind = "user.query"
	KindRetrievalRequested MessageKind = "retrieval.requested"
	KindRetrievalCompleted MessageKind = "retrieval.completed"
	KindFinalResult        MessageKind = "final.result"
	KindFailure            MessageKind = "failure"
)

// Payload is the kind-tagged union of envelope payloads. One struct per
// MessageKind; a receiver asserts the concrete type and treats a mismatch as
// a malformed payload, not a crash.
type Payload interface {
	Kind() MessageKind
}

// Envelope is the immutable message value exchanged between stages. The trace
// id is the sole correlation key for a user action: every envelope emitted
// while serving that action carries the id of the originating envelope.
// Deriving a follow-up never mutates the inbound value.
type Envelope struct {
	Sender   StageName   `json:"sender"`
	Receiver StageName   `json:"receiver"`
	Kind     MessageKind `json:"kind"`
	TraceID  string      `json:"trace_id"`
	Payload  Payload     `json:"payload"`
}

// NewEnvelope builds an envelope for the given payload. An empty traceID
// mints a fresh one; callers forwarding work for an existing action must pass
// the inbound trace id through.
func NewEnvelope(sender, receiver StageName, payload Payload, traceID string) Envelope {
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return Envelope{
		Sender:   sender,
		Receiver: receiver,
		Kind:     payload.Kind(),
		TraceID:  traceID,
		Payload:  payload,
	}
}

type DocumentUploadedPayload struct {
	FileName  string `json:"file_name"`
	FileBytes []byte `json:"file_bytes"`
}

func (DocumentUploadedPayload) Kind() MessageKind { return KindDocumentUploaded }

type DocumentIngestedPayload struct {
	Chunks      []Chunk `json:"chunks"`
	FileName    string  `json:"file_name"`
	TotalChunks int     `json:"total_chunks"`
}

func (DocumentIngestedPayload) Kind() MessageKind { return KindDocumentIngested }

type UserQueryPayload struct {
	Query string `json:"query"`
}

func (UserQueryPayload) Kind() MessageKind { return KindUserQuery }

type RetrievalRequestedPayload struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (RetrievalRequestedPayload) Kind() MessageKind { return KindRetrievalRequested }

type RetrievalCompletedPayload struct {
	Context      []RetrievedContext `json:"retrieved_context"`
	Query        string             `json:"query"`
	TotalResults int                `json:"total_results"`
}

func (RetrievalCompletedPayload) Kind() MessageKind { return KindRetrievalCompleted }

type FinalResultPayload struct {
	Answer     string      `json:"answer"`
	SourceInfo []SourceRef `json:"source_info"`
	Query      string      `json:"query"`
}

func (FinalResultPayload) Kind() MessageKind { return KindFinalResult }

// FailurePayload carries a human-readable description and a copy of the
// envelope whose processing failed, for diagnostics.
type FailurePayload struct {
	Error    string   `json:"error"`
	Original Envelope `json:"original_message"`
}

func (FailurePayload) Kind() MessageKind { return KindFailure }
