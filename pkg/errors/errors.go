package errors

import (
	"fmt"
	"strings"
)

// Diagnostic is implemented by every structured error in this package. The CLI
// serializes diagnostics into a single JSON object on stderr, so each error
// carries a stable machine-readable kind plus the entity references involved.
type Diagnostic interface {
	error
	Kind() string
	Entities() []string
}

// NoReplyFoundError reports a build directory with no File API reply set.
type NoReplyFoundError struct {
	BuildDir string
}

// NewNoReplyFoundError constructs a NoReplyFoundError.
func NewNoReplyFoundError(buildDir string) error {
	return &NoReplyFoundError{BuildDir: buildDir}
}

func (e *NoReplyFoundError) Error() string {
	return fmt.Sprintf("no build query reply found under %s\nHint: configure the build tree with a file-api query before extracting", e.BuildDir)
}

// Kind identifies the diagnostic category.
func (e *NoReplyFoundError) Kind() string { return "NoReplyFound" }

// Entities lists the references involved.
func (e *NoReplyFoundError) Entities() []string { return []string{e.BuildDir} }

// StaleReplyError reports an index that references a reply object which no
// longer exists on disk.
type StaleReplyError struct {
	IndexPath   string
	MissingPath string
}

// NewStaleReplyError constructs a StaleReplyError.
func NewStaleReplyError(indexPath, missingPath string) error {
	return &StaleReplyError{IndexPath: indexPath, MissingPath: missingPath}
}

func (e *StaleReplyError) Error() string {
	return fmt.Sprintf("stale reply: %s references missing file %s\nHint: re-run the configure step to refresh the reply set", e.IndexPath, e.MissingPath)
}

func (e *StaleReplyError) Kind() string { return "StaleReply" }

func (e *StaleReplyError) Entities() []string { return []string{e.IndexPath, e.MissingPath} }

// SchemaMismatchError reports a reply object whose major version is not the
// one this reader understands.
type SchemaMismatchError struct {
	Object   string
	Major    int
	Expected int
}

// NewSchemaMismatchError constructs a SchemaMismatchError.
func NewSchemaMismatchError(object string, major, expected int) error {
	return &SchemaMismatchError{Object: object, Major: major, Expected: expected}
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: %s major version %d, expected %d", e.Object, e.Major, e.Expected)
}

func (e *SchemaMismatchError) Kind() string { return "SchemaMismatch" }

func (e *SchemaMismatchError) Entities() []string { return []string{e.Object} }

// TestListingFailedError reports a non-zero exit from the test listing command.
type TestListingFailedError struct {
	ExitCode int
	Stderr   string
}

// NewTestListingFailedError constructs a TestListingFailedError.
func NewTestListingFailedError(exitCode int, stderr string) error {
	return &TestListingFailedError{ExitCode: exitCode, Stderr: stderr}
}

func (e *TestListingFailedError) Error() string {
	msg := fmt.Sprintf("test listing command failed with exit code %d", e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *TestListingFailedError) Kind() string { return "TestListingFailed" }

func (e *TestListingFailedError) Entities() []string { return nil }

// TestListingUnparseableError reports invalid JSON from the test listing command.
type TestListingUnparseableError struct {
	Err error
}

// NewTestListingUnparseableError constructs a TestListingUnparseableError.
func NewTestListingUnparseableError(err error) error {
	return &TestListingUnparseableError{Err: err}
}

func (e *TestListingUnparseableError) Error() string {
	return fmt.Sprintf("test listing output is not valid JSON: %v", e.Err)
}

func (e *TestListingUnparseableError) Kind() string { return "TestListingUnparseable" }

func (e *TestListingUnparseableError) Entities() []string { return nil }

// Unwrap exposes the underlying parse error.
func (e *TestListingUnparseableError) Unwrap() error { return e.Err }

// NoUserFrameError reports a backtrace whose parent chain never enters the
// repository root.
type NoUserFrameError struct {
	Subject  string
	RepoRoot string
}

// NewNoUserFrameError constructs a NoUserFrameError.
func NewNoUserFrameError(subject, repoRoot string) error {
	return &NoUserFrameError{Subject: subject, RepoRoot: repoRoot}
}

func (e *NoUserFrameError) Error() string {
	return fmt.Sprintf("no backtrace frame for %q lies within %s", e.Subject, e.RepoRoot)
}

func (e *NoUserFrameError) Kind() string { return "NoUserFrame" }

func (e *NoUserFrameError) Entities() []string { return []string{e.Subject} }

// MalformedBacktraceError reports a cyclic or out-of-range backtrace graph.
type MalformedBacktraceError struct {
	Subject string
	Reason  string
}

// NewMalformedBacktraceError constructs a MalformedBacktraceError.
func NewMalformedBacktraceError(subject, reason string) error {
	return &MalformedBacktraceError{Subject: subject, Reason: reason}
}

func (e *MalformedBacktraceError) Error() string {
	return fmt.Sprintf("malformed backtrace for %q: %s", e.Subject, e.Reason)
}

func (e *MalformedBacktraceError) Kind() string { return "MalformedBacktrace" }

func (e *MalformedBacktraceError) Entities() []string { return []string{e.Subject} }

// DanglingDependencyError reports a dependency edge pointing at an id absent
// from the codemodel.
type DanglingDependencyError struct {
	Target       string
	DependencyID string
}

// NewDanglingDependencyError constructs a DanglingDependencyError.
func NewDanglingDependencyError(target, dependencyID string) error {
	return &DanglingDependencyError{Target: target, DependencyID: dependencyID}
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("target %q depends on unknown target id %q", e.Target, e.DependencyID)
}

func (e *DanglingDependencyError) Kind() string { return "DanglingDependency" }

func (e *DanglingDependencyError) Entities() []string {
	return []string{e.Target, e.DependencyID}
}

// CyclicDependencyError reports a cycle in the component dependency graph.
type CyclicDependencyError struct {
	Path []string
}

// NewCyclicDependencyError constructs a CyclicDependencyError.
func NewCyclicDependencyError(path []string) error {
	return &CyclicDependencyError{Path: path}
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Path) == 0 {
		return "cyclic dependency detected among components"
	}
	return fmt.Sprintf("cyclic dependency detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Kind() string { return "CyclicDependency" }

func (e *CyclicDependencyError) Entities() []string { return e.Path }

// EvidenceMissingError reports an entity persisted without the call stack that
// justifies it.
type EvidenceMissingError struct {
	EntityKind string
	EntityName string
	Reason     string
}

// NewEvidenceMissingError constructs an EvidenceMissingError.
func NewEvidenceMissingError(kind, name, reason string) error {
	return &EvidenceMissingError{EntityKind: kind, EntityName: name, Reason: reason}
}

func (e *EvidenceMissingError) Error() string {
	return fmt.Sprintf("evidence missing for %s %q: %s", e.EntityKind, e.EntityName, e.Reason)
}

func (e *EvidenceMissingError) Kind() string { return "EvidenceMissing" }

func (e *EvidenceMissingError) Entities() []string { return []string{e.EntityName} }

// DuplicateEntityError reports two entities of the same kind sharing a name.
type DuplicateEntityError struct {
	EntityKind string
	EntityName string
}

// NewDuplicateEntityError constructs a DuplicateEntityError.
func NewDuplicateEntityError(kind, name string) error {
	return &DuplicateEntityError{EntityKind: kind, EntityName: name}
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("duplicate %s named %q", e.EntityKind, e.EntityName)
}

func (e *DuplicateEntityError) Kind() string { return "DuplicateEntity" }

func (e *DuplicateEntityError) Entities() []string { return []string{e.EntityName} }

// BackReferenceMismatchError reports inconsistent component/test back-pointers.
type BackReferenceMismatchError struct {
	Component string
	Test      string
}

// NewBackReferenceMismatchError constructs a BackReferenceMismatchError.
func NewBackReferenceMismatchError(component, test string) error {
	return &BackReferenceMismatchError{Component: component, Test: test}
}

func (e *BackReferenceMismatchError) Error() string {
	return fmt.Sprintf("component %q and test %q disagree on their linkage", e.Component, e.Test)
}

func (e *BackReferenceMismatchError) Kind() string { return "BackReferenceMismatch" }

func (e *BackReferenceMismatchError) Entities() []string {
	return []string{e.Component, e.Test}
}

// TransactionFailedError reports a persistence transaction that did not commit.
type TransactionFailedError struct {
	Err error
}

// NewTransactionFailedError constructs a TransactionFailedError.
func NewTransactionFailedError(err error) error {
	return &TransactionFailedError{Err: err}
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("persistence transaction failed: %v", e.Err)
}

func (e *TransactionFailedError) Kind() string { return "TransactionFailed" }

func (e *TransactionFailedError) Entities() []string { return nil }

// Unwrap exposes the database error.
func (e *TransactionFailedError) Unwrap() error { return e.Err }

// ParseError represents a configuration parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

func (e *ParseError) Kind() string { return "ParseError" }

func (e *ParseError) Entities() []string { return []string{e.Path} }

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Kind() string { return "ValidationError" }

func (e *ValidationError) Entities() []string { return nil }

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error { return e.Err }
