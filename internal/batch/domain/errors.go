package domain

import "errors"

var (
	ErrBatchNotFound     = errors.New("batch_not_found")
	ErrInvalidBatch      = errors.New("invalid_batch")
	ErrInvalidTransition = errors.New("invalid_batch_transition")
	ErrEmptyInvoiceSet   = errors.New("empty_invoice_set")
)
