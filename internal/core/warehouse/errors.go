// Package warehouse mediates access to the SQL warehouse.
//
// Every operation runs on a scoped connection: it is opened with the cached
// credentials, handed to exactly one operation, and closed on every exit path.
// Connections are never pooled or shared between operations.
//
// Errors:
//
//	ErrCredentialRetrieval  secret store failed; *secrets.Error is in the chain
//	ErrConnection           warehouse refused or failed the open
//	ErrQuery                a statement failed or its rows could not be read
//	ErrConsistency          a row that was just written could not be re-read
//
// Nothing in this package logs or retries.
package warehouse

import "errors"

var (
	ErrCredentialRetrieval = errors.New("credential retrieval failed")
	ErrConnection          = errors.New("warehouse connection failed")
	ErrQuery               = errors.New("query failed")
	ErrConsistency         = errors.New("consistency violation")
)
