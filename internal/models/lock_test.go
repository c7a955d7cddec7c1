package models

import (
	"testing"
	"time"
)

func TestLockExpired(t *testing.T) {
	now := time.Now()

	active := &RowLock{ExpiresAt: now.Add(10 * time.Minute)}
	if active.Expired(now) {
		t.Error("Future expiry should not be expired")
	}

	stale := &RowLock{ExpiresAt: now.Add(-time.Second)}
	if !stale.Expired(now) {
		t.Error("Past expiry should be expired")
	}

	boundary := &RowLock{ExpiresAt: now}
	if !boundary.Expired(now) {
		t.Error("A lock expiring exactly now is expired")
	}
}

func TestLockHeldBy(t *testing.T) {
	now := time.Now()
	lock := &RowLock{HolderID: "alice", ExpiresAt: now.Add(time.Minute)}

	if !lock.HeldBy("alice", now) {
		t.Error("Holder should hold an active lock")
	}
	if lock.HeldBy("bob", now) {
		t.Error("Non-holder should not hold the lock")
	}
	if lock.HeldBy("alice", now.Add(2*time.Minute)) {
		t.Error("An expired lock is held by nobody")
	}
}
