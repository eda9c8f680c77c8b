package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot captures a point-in-time copy of every collection. Each slice keeps
// the collection's insertion order.
type Snapshot struct {
	Courts          []Court          `json:"courts"`
	TimeSlots       []TimeSlot       `json:"time_slots"`
	Reservations    []Reservation    `json:"reservations"`
	Clinics         []Clinic         `json:"clinics"`
	Coaches         []Coach          `json:"coaches"`
	Users           []User           `json:"users"`
	Socials         []Social         `json:"socials"`
	PrivateSessions []PrivateSession `json:"private_sessions"`
}

// SnapshotBuckets lists the bucket names used by durable backends, one per collection.
var SnapshotBuckets = []string{
	"courts",
	"time_slots",
	"reservations",
	"clinics",
	"coaches",
	"users",
	"socials",
	"private_sessions",
}

func (s *Snapshot) target(bucket string) (any, bool) {
	switch bucket {
	case "courts":
		return &s.Courts, true
	case "time_slots":
		return &s.TimeSlots, true
	case "reservations":
		return &s.Reservations, true
	case "clinics":
		return &s.Clinics, true
	case "coaches":
		return &s.Coaches, true
	case "users":
		return &s.Users, true
	case "socials":
		return &s.Socials, true
	case "private_sessions":
		return &s.PrivateSessions, true
	}
	return nil, false
}

// EncodeBuckets renders every collection as a JSON array keyed by bucket name.
func (s Snapshot) EncodeBuckets() (map[string][]byte, error) {
	out := make(map[string][]byte, len(SnapshotBuckets))
	for _, bucket := range SnapshotBuckets {
		target, _ := s.target(bucket)
		data, err := json.Marshal(target)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBucket loads one bucket payload into the snapshot. Unknown buckets and
// empty payloads are ignored so older stores stay readable.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	target, ok := s.target(bucket)
	if !ok || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

// SnapshotBackend is the pluggable durable store behind the in-memory
// repositories. Implementations persist whole snapshots.
type SnapshotBackend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Close() error
}
