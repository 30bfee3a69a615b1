package common

import "errors"

// Stable tags for the error taxonomy. The presentation layer translates
// these into messages; the core never does.
const (
	TagOK                    = "OK"
	TagInvalidInput          = "INVALID_INPUT"
	TagBadSignature          = "BAD_SIGNATURE"
	TagUnknownToken          = "UNKNOWN_TOKEN"
	TagTokenInactive         = "TOKEN_INACTIVE"
	TagTokenExpired          = "TOKEN_EXPIRED"
	TagAlreadyClaimed        = "ALREADY_CLAIMED"
	TagLedgerIntegrityBroken = "LEDGER_INTEGRITY_BROKEN"
	TagStorageFailure        = "STORAGE_FAILURE"
	TagUnauthorized          = "UNAUTHORIZED"
	TagExportDisabled        = "EXPORT_DISABLED"
	TagInternal              = "INTERNAL"
)

var tagged = []struct {
	err error
	tag string
}{
	{ErrInvalidInput, TagInvalidInput},
	{ErrBadSignature, TagBadSignature},
	{ErrUnknownToken, TagUnknownToken},
	{ErrTokenInactive, TagTokenInactive},
	{ErrTokenExpired, TagTokenExpired},
	{ErrAlreadyClaimed, TagAlreadyClaimed},
	{ErrLedgerIntegrityBroken, TagLedgerIntegrityBroken},
	{ErrorUnauthorized, TagUnauthorized},
	{ErrInvalidAccessToken, TagUnauthorized},
	{ErrAccessTokenExpired, TagUnauthorized},
	{ErrExportDisabled, TagExportDisabled},
	{ErrStorageFailure, TagStorageFailure},
}

// Tag returns the taxonomy tag for err. Domain tags win over
// TagStorageFailure when both are present in the chain.
func Tag(err error) string {
	if err == nil {
		return TagOK
	}
	for _, t := range tagged {
		if errors.Is(err, t.err) {
			return t.tag
		}
	}
	return TagInternal
}
