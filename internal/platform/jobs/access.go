// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package jobs

// # Owner-Scoped Access
//
// Engines expose their jobs through these helpers so that a job of another
// kind, or owned by another user, is indistinguishable from a missing one.

// StatusFor returns the job if userID owns it and it has the given kind.
func (tracker *Tracker) StatusFor(id, userID string, kind Kind) (Job, error) {
	job, err := tracker.GetOwned(id, userID)
	if err != nil {
		return Job{}, err
	}
	if job.Kind != kind {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// CancelFor requests cancellation and returns the job as seen afterwards.
func (tracker *Tracker) CancelFor(id, userID string, kind Kind) (Job, error) {
	job, err := tracker.StatusFor(id, userID, kind)
	if err != nil {
		return Job{}, err
	}
	if !tracker.RequestCancel(id, userID) {
		return job, ErrJobFinished
	}
	return tracker.Get(id)
}

// CleanupFor evicts a finished job owned by userID.
func (tracker *Tracker) CleanupFor(id, userID string, kind Kind) error {
	if _, err := tracker.StatusFor(id, userID, kind); err != nil {
		return err
	}
	return tracker.Cleanup(id)
}
