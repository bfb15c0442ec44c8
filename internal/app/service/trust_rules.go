package service

import (
	"strings"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
)

// ComputeIsVerified: at least one approved certification OR an active premium subscription.
// Premium alone is enough, so a seller with no certifications loses verification when premium lapses.
func ComputeIsVerified(approvedCount int, hasActivePremium bool) bool {
	return approvedCount >= 1 || hasActivePremium
}

// ResolveIsVerified applies a stored manual override over the computed value
func ResolveIsVerified(override *bool, approvedCount int, hasActivePremium bool) bool {
	if override != nil {
		return *override
	}
	return ComputeIsVerified(approvedCount, hasActivePremium)
}

// ComputeHasBadge checks, in order: category and policy present and allowing the badge,
// minimum approved count, then every required name among approved names (case-insensitive).
func ComputeHasBadge(primaryCategoryID *uint, policy *model.CategoryBadgePolicy, approved []model.Certification) bool {
	if primaryCategoryID == nil || policy == nil || !policy.AllowsBadge {
		return false
	}
	if len(approved) < policy.MinCertifications {
		return false
	}
	if len(policy.RequiredCertifications) == 0 {
		return true
	}

	held := make(map[string]struct{}, len(approved))
	for _, cert := range approved {
		held[normalizeCertificationName(cert.Name)] = struct{}{}
	}
	for _, required := range policy.RequiredCertifications {
		if _, ok := held[normalizeCertificationName(required)]; !ok {
			return false
		}
	}
	return true
}

func normalizeCertificationName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
