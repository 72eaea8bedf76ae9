package documents

import "errors"

var (
	// ErrNotFound is returned when a document does not exist or does not
	// belong to the verification in the request path.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidInput is returned for malformed upload requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVerificationNotFound is returned when the verification in the
	// request path does not exist.
	ErrVerificationNotFound = errors.New("verification not found")

	// ErrVerificationClosed is returned when documents are submitted to a
	// verification that is no longer accepting them.
	ErrVerificationClosed = errors.New("verification is not accepting documents")

	// ErrResidentNotFound is returned when the resident does not belong to
	// the verification's lease.
	ErrResidentNotFound = errors.New("resident not found on this verification")

	// ErrResidentFinalized is returned when a document operation targets a
	// resident whose income has already been finalized.
	ErrResidentFinalized = errors.New("resident income is finalized")

	// ErrFileTooLarge is returned when an upload exceeds the size cap.
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")

	// ErrUnsupportedFile is returned when the upload is not a PDF or a
	// supported image format.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrUnreadableFile is returned when a PDF cannot be opened at all.
	ErrUnreadableFile = errors.New("file could not be read")
)

// Error codes recorded on documents routed to review or rejected. The review
// reason carries the human-readable detail; the code is the stable bucket.
const (
	ErrorCodeExtraction      = "EXTRACTION_FAILURE"
	ErrorCodeAnalyzerTimeout = "ANALYZER_TIMEOUT"
	ErrorCodeValidation      = "VALIDATION_ERROR"
	ErrorCodeManualReview    = "MANUAL_REVIEW"
	ErrorCodeDuplicate       = "DUPLICATE_DOCUMENT"
	ErrorCodeTimeout         = "PROCESSING_TIMEOUT"
	ErrorCodeStorage         = "STORAGE_ERROR"
	ErrorCodeInternal        = "INTERNAL_ERROR"
)
