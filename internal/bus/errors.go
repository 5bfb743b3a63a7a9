package bus

import "errors"

// Pipeline error taxonomy. Stage-level errors (malformed payloads, parse and
// collaborator failures) are caught at the stage boundary and converted into
// Failure envelopes; only wiring errors escape a Publish call.
var (
	ErrMalformedPayload        = errors.New("malformed payload")
	ErrUnsupportedFormat       = errors.New("unsupported document format")
	ErrParseFailure            = errors.New("document parse failure")
	ErrUnknownReceiver         = errors.New("unknown receiver")
	ErrDuplicateStage          = errors.New("duplicate stage registration")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrUnknownDocumentKind     = errors.New("unknown document kind")
)
