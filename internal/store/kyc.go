package store

import (
	"context"
	"encoding/json"

	"ustbills/internal/domain"
	dErrors "ustbills/pkg/domain-errors"
)

// KYCSessions stores document upload sessions keyed by upload ID. Put is an
// upsert: a re-upload by the same user replaces the earlier session rather
// than failing, matching the one-session-per-principal model.
type KYCSessions struct {
	t table[domain.FreeKYCSession]
}

func newKYCSessions(db *DB) (*KYCSessions, error) {
	t, err := newTable[domain.FreeKYCSession](db, regionKYCSessions)
	if err != nil {
		return nil, err
	}
	return &KYCSessions{t: t}, nil
}

func (k *KYCSessions) Put(_ context.Context, uploadID string, s domain.FreeKYCSession) error {
	return k.t.put([]byte(uploadID), s)
}

func (k *KYCSessions) Get(_ context.Context, uploadID string) (domain.FreeKYCSession, error) {
	return k.t.get([]byte(uploadID))
}

func (k *KYCSessions) Update(_ context.Context, uploadID string, s domain.FreeKYCSession) error {
	return k.t.update([]byte(uploadID), s)
}

// PendingSession pairs a review-queue session with its upload ID.
type PendingSession struct {
	UploadID string
	Session  domain.FreeKYCSession
}

// PendingReviews returns sessions awaiting admin review in ascending upload
// ID order, so the queue is stable across calls.
func (k *KYCSessions) PendingReviews(_ context.Context) ([]PendingSession, error) {
	var out []PendingSession
	err := k.t.region.ForEach(func(key, raw []byte) error {
		var s domain.FreeKYCSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "corrupt stored record")
		}
		if s.Status == domain.KYCSessionPendingReview {
			out = append(out, PendingSession{UploadID: string(key), Session: s})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (k *KYCSessions) Count() (uint64, error) { return k.t.count() }
