package worklog

import "errors"

var (
	// ErrConfiguration means the tenant cannot be synchronized as configured.
	// Nothing is written when it is returned.
	ErrConfiguration = errors.New("configuration error")

	// ErrSourceFetch means the time source could not report the period.
	// The period is skipped and no task is touched.
	ErrSourceFetch = errors.New("time source fetch failed")

	// ErrRemoteLookup means the issue or its worklogs could not be read.
	ErrRemoteLookup = errors.New("remote lookup failed")

	// ErrRemoteWrite means creating or updating the worklog failed.
	ErrRemoteWrite = errors.New("remote write failed")
)
