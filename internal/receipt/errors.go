package receipt

import "errors"

var (
	// ErrNoItemsFound means extraction produced nothing; the caller should offer dictation or manual entry
	ErrNoItemsFound = errors.New("no items found")
	// ErrProcessingFailed means the OCR engine itself failed; the caller should offer dictation or manual entry
	ErrProcessingFailed = errors.New("processing failed")
	// ErrNotFound means the run or image does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCommitted means the run was already sent to the inventory
	ErrAlreadyCommitted = errors.New("run already committed")
	// ErrInvalidInput means the request carried unusable data
	ErrInvalidInput = errors.New("invalid input")
)
