// Package services implements unique property view counting and the monthly
// storage usage history.
package services

import "errors"

var (
	// ErrCannotRecordView wraps any persistence failure while recording a view.
	ErrCannotRecordView = errors.New("cannot record view")
	// ErrPropertyNotFound is returned when a new view targets a property that does not exist.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrStorageQuery wraps failures of the file-storage provider listing.
	ErrStorageQuery = errors.New("storage query failed")
	// ErrStoragePersist wraps failures writing the monthly storage record.
	ErrStoragePersist = errors.New("cannot persist storage history")
)
