package entitlements

import (
	"strings"
	"time"
)

const (
	TierFree        = "free"
	TierAccelerator = "accelerator"
	TierPremium     = "premium"
)

var unlockedCoursesByTier = map[string]int{
	TierFree:        2,
	TierAccelerator: 4,
	TierPremium:     7,
}

// defaultUnlockedCourses applies to any tier we do not recognise
const defaultUnlockedCourses = 1

// TierToUnlockedCourses maps a subscription tier to an unlocked-course count.
// It is case-insensitive and never fails.
func TierToUnlockedCourses(tier string) int {
	if n, ok := unlockedCoursesByTier[NormalizeTier(tier)]; ok {
		return n
	}
	return defaultUnlockedCourses
}

func NormalizeTier(tier string) string {
	return strings.ToLower(strings.TrimSpace(tier))
}

// IsKnownTier reports whether tier is one of the enumerated subscription tiers
func IsKnownTier(tier string) bool {
	_, ok := unlockedCoursesByTier[NormalizeTier(tier)]
	return ok
}

type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusError   SyncStatus = "error"
)

// Enrollment is a user's access row for a course. (UserID, CourseID) is unique.
type Enrollment struct {
	UserID          string    `json:"userId"`
	CourseID        string    `json:"courseId"`
	UnlockedCourses int       `json:"unlockedCourses"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Integration links a local user to their SoloSuccess subscription
type Integration struct {
	UserID            string     `json:"userId"`
	SoloSuccessUserID string     `json:"solosuccessUserId"`
	SubscriptionTier  string     `json:"subscriptionTier"`
	IsActive          bool       `json:"isActive"`
	SyncStatus        SyncStatus `json:"syncStatus"`
	LastSyncAt        *time.Time `json:"lastSyncAt,omitempty"`
	LastError         string     `json:"lastError,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
