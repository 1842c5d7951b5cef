package models

// EngagementKind is a per-user toggle on an event.
type EngagementKind string

const (
	EngagementLike     EngagementKind = "like"
	EngagementInterest EngagementKind = "interest"
)

func (k EngagementKind) Valid() bool {
	return k == EngagementLike || k == EngagementInterest
}

// EngagementState is returned after a toggle.
type EngagementState struct {
	EventID         string         `json:"eventId"`
	Kind            EngagementKind `json:"kind"`
	Active          bool           `json:"active"`
	LikeCount       int            `json:"likeCount"`
	InterestedCount int            `json:"interestedCount"`
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// HasEngagement reports whether uid is in the event's set for kind.
func (e *Event) HasEngagement(kind EngagementKind, uid string) bool {
	if kind == EngagementLike {
		return containsString(e.Likes, uid)
	}
	return containsString(e.Interested, uid)
}

// HasEngagement reports whether the event is in the user's set for kind.
func (u *User) HasEngagement(kind EngagementKind, eventID string) bool {
	if kind == EngagementLike {
		return containsString(u.LikedEvents, eventID)
	}
	return containsString(u.InterestedEvents, eventID)
}

// AddUnique appends v unless present.
func AddUnique(list []string, v string) []string {
	if containsString(list, v) {
		return list
	}
	return append(list, v)
}

// RemoveAll drops every occurrence of v.
func RemoveAll(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
