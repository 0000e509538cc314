package game

import (
	"context"
	"time"

	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/domain/pose"
	"github.com/okian/groove/pkg/logger"
	"github.com/okian/groove/pkg/metrics"
)

// Pose sample outcomes.
const (
	sampleAccepted      = "accepted"
	sampleNoBody        = "no_body"
	sampleLowConfidence = "low_confidence"
	sampleClosed        = "closed"
)

// sample is the single-slot latest pose. It is replaced, never queued.
type sample struct {
	joints pose.Joints
	at     time.Time
}

// SubmitPose offers a detector sample. Usable samples overwrite the latest
// slot; samples without a body or below the confidence floor are dropped and
// let the tracking-lost timer run. Safe to call from any goroutine.
func (s *Session) SubmitPose(d pose.Detected) bool {
	if s.closed.Load() {
		metrics.RecordPoseSample(sampleClosed)
		return false
	}
	if d.BodyCount <= 0 || len(d.Joints) == 0 {
		metrics.RecordPoseSample(sampleNoBody)
		return false
	}
	if d.Confidence < s.minConfidence {
		metrics.RecordPoseSample(sampleLowConfidence)
		return false
	}
	s.latest.Store(&sample{joints: d.Joints.Clone(), at: s.now()})
	metrics.RecordPoseSample(sampleAccepted)
	return true
}

// updateTracking recomputes the tracking state and emits edge events.
// Tracking is lost once no usable sample has arrived for longer than the
// grace period. Caller holds s.mu.
func (s *Session) updateTracking(ctx context.Context, now time.Time, at float64, beat int) bool {
	ref := s.graceFrom
	if latest := s.latest.Load(); latest != nil && latest.at.After(ref) {
		ref = latest.at
	}
	lost := now.Sub(ref) > s.grace
	if lost == s.trackingLost {
		return lost
	}
	s.trackingLost = lost

	kind := model.KindTrackingRestored
	if lost {
		kind = model.KindTrackingLost
		metrics.RecordTrackingLost()
		s.log.Warn(ctx, "tracking lost", logger.Int("beat", beat), logger.Duration("since_last_pose", now.Sub(ref)))
	} else {
		s.log.Info(ctx, "tracking restored", logger.Int("beat", beat))
	}
	s.publish(ctx, model.Event{Kind: kind, Beat: beat, AudioTime: at})
	return lost
}
