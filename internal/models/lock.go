package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type LockType string

const (
	LockTypeEdit LockType = "edit"
	LockTypeView LockType = "view"
)

// RowLock is the exclusive edit claim on a row. ExpiresAt is a BSON date so
// Mongo's TTL monitor can purge stale locks; an expired-but-present document
// is still treated as absent everywhere.
type RowLock struct {
	ID         bson.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	SheetID    bson.ObjectID `json:"sheetId" bson:"sheetId"`
	RowID      bson.ObjectID `json:"rowId" bson:"rowId"`
	HolderID   string        `json:"holderId" bson:"holderId"`
	HolderName string        `json:"holderName,omitempty" bson:"holderName,omitempty"`
	LockType   LockType      `json:"lockType" bson:"lockType"`
	AcquiredAt time.Time     `json:"acquiredAt" bson:"acquiredAt"`
	ExpiresAt  time.Time     `json:"expiresAt" bson:"expiresAt"`
}

func (l *RowLock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// HeldBy reports whether the lock is currently active and owned by the actor.
func (l *RowLock) HeldBy(actorID string, now time.Time) bool {
	return l.HolderID == actorID && !l.Expired(now)
}
