// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package faults defines the error taxonomy shared by every verification
// stage. Errors carry a Kind tag instead of a transport status code; the
// HTTP layer owns the mapping from Kind to status.
package faults

import (
	"errors"
	"fmt"
	"time"
)

// Kind tags an error with the failure class it belongs to.
//
// # Description
//
//	Kinds fall into three behavioral groups:
//	  - Request-fatal: KindValidation, KindClassification, KindTimeout,
//	    KindRateLimited. The request fails as a whole.
//	  - Claim-contained: KindExtraction, KindRetrieval, KindVerification.
//	    The affected claim degrades to UNCERTAIN; siblings continue.
//	  - Availability: KindModelNotReady, KindKnowledgeBaseUnavailable.
//	    Retryable by the caller after a short delay.
//
//	KindCache never fails a request; cache faults degrade to a fresh
//	pipeline run.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no kind.
	KindUnknown Kind = iota

	// KindValidation marks bad input shape, length, or content.
	KindValidation

	// KindModelNotReady marks an inference backend that has not finished
	// loading or has been shut down.
	KindModelNotReady

	// KindKnowledgeBaseUnavailable marks an unreachable or empty vector
	// index.
	KindKnowledgeBaseUnavailable

	// KindExtraction marks a claim-extraction fault.
	KindExtraction

	// KindRetrieval marks an embedding or index-search fault for one claim.
	KindRetrieval

	// KindVerification marks an entailment-scoring fault for one claim.
	KindVerification

	// KindClassification marks an aggregation logic fault. Fatal.
	KindClassification

	// KindRateLimited marks admission denial. Carries a retry-after hint.
	KindRateLimited

	// KindCache marks a response-cache bookkeeping fault.
	KindCache

	// KindTimeout marks an overall pipeline deadline breach.
	KindTimeout
)

// String returns the stable wire identifier for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindModelNotReady:
		return "model_not_ready"
	case KindKnowledgeBaseUnavailable:
		return "knowledge_base_unavailable"
	case KindExtraction:
		return "extraction_failure"
	case KindRetrieval:
		return "retrieval_failure"
	case KindVerification:
		return "verification_failure"
	case KindClassification:
		return "classification_failure"
	case KindRateLimited:
		return "rate_limit_exceeded"
	case KindCache:
		return "cache_failure"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Fault is the concrete error type produced by verification stages.
//
// # Fields
//
//   - Kind: failure class, see Kind.
//   - Op: the operation that failed, e.g. "retrieve.embed".
//   - Msg: human-readable detail. Optional when Err is set.
//   - RetryAfter: positive only for KindRateLimited and availability kinds.
//   - Err: wrapped cause, if any.
type Fault struct {
	Kind       Kind
	Op         string
	Msg        string
	RetryAfter time.Duration
	Err        error
}

func (f *Fault) Error() string {
	switch {
	case f.Msg != "" && f.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", f.Kind, f.Op, f.Msg, f.Err)
	case f.Err != nil:
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Op, f.Err)
	case f.Msg != "":
		return fmt.Sprintf("%s: %s: %s", f.Kind, f.Op, f.Msg)
	default:
		return fmt.Sprintf("%s: %s", f.Kind, f.Op)
	}
}

func (f *Fault) Unwrap() error { return f.Err }

// Validation builds a request-fatal input error.
func Validation(op, msg string) *Fault {
	return &Fault{Kind: KindValidation, Op: op, Msg: msg}
}

// NotReady signals that an inference backend cannot serve yet.
func NotReady(op, msg string) *Fault {
	return &Fault{Kind: KindModelNotReady, Op: op, Msg: msg, RetryAfter: 5 * time.Second}
}

// KBUnavailable signals that the vector index cannot be queried.
func KBUnavailable(op string, err error) *Fault {
	return &Fault{Kind: KindKnowledgeBaseUnavailable, Op: op, Err: err, RetryAfter: 5 * time.Second}
}

// Extraction wraps a claim-extraction fault.
func Extraction(op string, err error) *Fault {
	return &Fault{Kind: KindExtraction, Op: op, Err: err}
}

// Retrieval wraps an embedding or index-search fault.
func Retrieval(op string, err error) *Fault {
	return &Fault{Kind: KindRetrieval, Op: op, Err: err}
}

// Verification wraps an entailment-scoring fault.
func Verification(op string, err error) *Fault {
	return &Fault{Kind: KindVerification, Op: op, Err: err}
}

// Classification wraps an aggregation fault. Request-fatal.
func Classification(op string, err error) *Fault {
	return &Fault{Kind: KindClassification, Op: op, Err: err}
}

// RateLimited signals admission denial with a refill-schedule hint.
func RateLimited(retryAfter time.Duration) *Fault {
	return &Fault{Kind: KindRateLimited, Op: "admit", RetryAfter: retryAfter}
}

// Cache wraps a response-cache bookkeeping fault.
func Cache(op string, err error) *Fault {
	return &Fault{Kind: KindCache, Op: op, Err: err}
}

// Timeout signals an overall pipeline deadline breach.
func Timeout(op string, deadline time.Duration) *Fault {
	return &Fault{Kind: KindTimeout, Op: op,
		Msg: fmt.Sprintf("exceeded %s deadline", deadline)}
}

// KindOf extracts the Kind from an error chain. Returns KindUnknown for
// errors that do not wrap a Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// RetryAfterOf returns the retry-after hint carried by the error, or zero.
func RetryAfterOf(err error) time.Duration {
	var f *Fault
	if errors.As(err, &f) {
		return f.RetryAfter
	}
	return 0
}

// IsClaimContained reports whether the error degrades a single claim
// rather than failing the request.
func IsClaimContained(err error) bool {
	switch KindOf(err) {
	case KindExtraction, KindRetrieval, KindVerification:
		return true
	}
	return false
}

// IsNotReady reports whether the caller should retry after a short delay.
func IsNotReady(err error) bool {
	switch KindOf(err) {
	case KindModelNotReady, KindKnowledgeBaseUnavailable:
		return true
	}
	return false
}

// IsRateLimited reports whether the error is an admission denial.
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

// IsTimeout reports whether the error is a pipeline deadline breach.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }
