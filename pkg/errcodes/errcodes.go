package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError  failure.ErrorCode = "InternalServerError"
	TimeoutExceeded      failure.ErrorCode = "TimeoutExceeded"
	ValidationError      failure.ErrorCode = "ValidationError"
	NotFound             failure.ErrorCode = "NotFound"
	InvalidPaging        failure.ErrorCode = "InvalidPaging"
	InvalidStage         failure.ErrorCode = "InvalidStage"
	InvalidReviewID      failure.ErrorCode = "InvalidReviewID"
	InvalidMarketItemID  failure.ErrorCode = "InvalidMarketItemID"
	InvalidCatalogCardID failure.ErrorCode = "InvalidCatalogCardID"
	InvalidReviewStatus  failure.ErrorCode = "InvalidReviewStatus"

	// Pipeline
	DataError        failure.ErrorCode = "DataError"        // malformed or missing key inputs
	SourceError      failure.ErrorCode = "SourceError"      // vendor HTTP failure or rate limit
	InsufficientData failure.ErrorCode = "InsufficientData" // no qualifying samples in the window
	AmbiguousMatch   failure.ErrorCode = "AmbiguousMatch"   // tied candidates, routed to review
	NoRunSummary     failure.ErrorCode = "NoRunSummary"
	RunInProgress    failure.ErrorCode = "RunInProgress"    // an identical run is already queued
)
