package common

import "errors"

// Sentinel errors returned by the buffer pool's public operations. Callers
// compare against these with errors.Is rather than matching bools alone,
// since disk-manager failures are wrapped around the same call paths.
var (
	// ErrNoSpaceLeft is returned by FetchPage/NewPage when every frame is
	// pinned and neither the free list nor the replacer can supply one.
	ErrNoSpaceLeft = errors.New("bufferpool: no space left in the buffer pool")

	// ErrPageNotFound names the case of a page id that is not currently
	// resident. UnpinPage and FlushPage report that case as false and do
	// not return this error.
	ErrPageNotFound = errors.New("bufferpool: page not resident")

	// ErrPageBusy names the case of deleting a page that is still pinned.
	// DeletePage reports that case as (false, nil) and does not return this
	// error.
	ErrPageBusy = errors.New("bufferpool: page is pinned")

	// ErrNoVictim names the case of a Replacer with no eligible frame.
	// Replacer.Victim reports that case through its bool result and does
	// not return this error.
	ErrNoVictim = errors.New("replacer: no victim available")
)
