package service

import "github.com/Kiog-Aser/CourseThing/internal/models"

// LockReason explains why the access gate denied a lesson.
type LockReason string

const (
	// LockReasonAuth means the viewer must sign in first.
	LockReasonAuth LockReason = "auth"
	// LockReasonSubscription means the viewer must hold an active subscription.
	LockReasonSubscription LockReason = "subscription"
)

// AccessDecision is the gate verdict for one lesson.
type AccessDecision struct {
	Allowed bool
	Reason  LockReason
}

// CanAccess decides whether the viewer may open the lesson at the given
// position in the course's resolved sequence. Rules, in order:
//
//  1. The first lesson of the sequence is always open, to anyone.
//  2. Beyond it, the viewer must be signed in.
//  3. Beyond it on a non-FREE course, the viewer must also be a subscriber.
//
// Pure predicate; the caller redirects to sign-in or checkout based on the
// reason. Admin authoring routes never consult the gate.
func CanAccess(position int, viewer models.Viewer, course models.Course) AccessDecision {
	if position == 0 {
		return AccessDecision{Allowed: true}
	}
	if !viewer.Authenticated() {
		return AccessDecision{Allowed: false, Reason: LockReasonAuth}
	}
	if !course.IsFree() && !viewer.Subscribed {
		return AccessDecision{Allowed: false, Reason: LockReasonSubscription}
	}
	return AccessDecision{Allowed: true}
}
