package constants

// ResultKind is the terminal outcome of one pipeline invocation.
type ResultKind string

// Stable values (reported over gRPC and in batch reports).
const (
	ResultSuccess         ResultKind = "SUCCESS"           // tracking id recovered
	ResultNeedsManualCrop ResultKind = "NEEDS_MANUAL_CROP" // user must select a region
	ResultFailure         ResultKind = "FAILURE"           // terminal failure
)
