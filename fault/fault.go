// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// error base
type GenericError string

// to allow for different classes of errors
type AccessDeniedError GenericError
type BudgetError GenericError
type ExistsError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type StaleError GenericError
type TimeoutError GenericError
type ViolationError GenericError

// common errors - keep in alphabetic order
var (
	AlreadyInitialised      = ProcessError("already initialised")
	BudgetExceeded          = BudgetError("flow budget exceeded")
	CannotDecodeIdentifier  = InvalidError("cannot decode identifier")
	ChecksumMismatch        = InvalidError("checksum mismatch")
	ConsensusTimeout        = TimeoutError("consensus threshold not reached before timeout")
	DoubleSignRefused       = StaleError("already signed a different operation for this instance")
	EvaluationCancelled     = ProcessError("evaluation cancelled")
	InstanceNotFound        = NotFoundError("consensus instance not found")
	InvalidCommitFact       = InvalidError("commit fact is malformed")
	InvalidDnsTxtRecord     = InvalidError("DNS TXT record is malformed")
	InvalidFact             = InvalidError("fact is malformed")
	InvalidFactKind         = InvalidError("fact kind is out of range")
	InvalidNamespace        = InvalidError("namespace is malformed")
	InvalidPrivateKey       = InvalidError("private key is invalid")
	InvalidPublicKey        = InvalidError("public key is invalid")
	InvalidSignature        = ViolationError("signature verification failed")
	InvalidTreeOperation    = InvalidError("tree operation is malformed")
	InvalidWitnessDomain    = InvalidError("invalid witness domain")
	JournalNotFound         = NotFoundError("no journal for namespace")
	LeakageExceeded         = BudgetError("leakage budget exceeded")
	MissingWitnesses        = InvalidError("witness signatures are required")
	NamespaceMismatch       = ProcessError("cannot merge journals with different namespaces")
	NotConnected            = ProcessError("not connected to server")
	NotInitialised          = ProcessError("not initialised")
	SnapshotNotApplicable   = InvalidError("snapshot does not cover an attested prefix")
	StaleOperation          = StaleError("prestate hash does not match current reduction")
	ThresholdNotReached     = InvalidError("too few partial signatures for threshold")
	TransportFailed         = ProcessError("transport send failed")
	Unauthorized            = AccessDeniedError("token does not authorize this operation")
	UnknownObserverClass    = AccessDeniedError("observer class has no configured budget")
	UnorderableFactSet      = ViolationError("fact set has no deterministic order")
	WrongNetworkForPeer     = InvalidError("peer announcement for wrong network")
	WrongLengthFactIdentity = InvalidError("fact identity has wrong length")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e AccessDeniedError) Error() string { return string(e) }
func (e BudgetError) Error() string       { return string(e) }
func (e ExistsError) Error() string       { return string(e) }
func (e InvalidError) Error() string      { return string(e) }
func (e NotFoundError) Error() string     { return string(e) }
func (e ProcessError) Error() string      { return string(e) }
func (e StaleError) Error() string        { return string(e) }
func (e TimeoutError) Error() string      { return string(e) }
func (e ViolationError) Error() string    { return string(e) }

// determine the class of an error
func IsErrAccessDenied(e error) bool { _, ok := e.(AccessDeniedError); return ok }
func IsErrBudget(e error) bool       { _, ok := e.(BudgetError); return ok }
func IsErrExists(e error) bool       { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool      { _, ok := e.(InvalidError); return ok }
func IsErrNotFound(e error) bool     { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool      { _, ok := e.(ProcessError); return ok }
func IsErrStale(e error) bool        { _, ok := e.(StaleError); return ok }
func IsErrTimeout(e error) bool      { _, ok := e.(TimeoutError); return ok }
func IsErrViolation(e error) bool    { _, ok := e.(ViolationError); return ok }
