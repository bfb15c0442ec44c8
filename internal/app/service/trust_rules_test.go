package service

import (
	"testing"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func approvedCerts(names ...string) []model.Certification {
	certs := make([]model.Certification, len(names))
	for i, name := range names {
		certs[i] = model.Certification{Name: name, Status: model.CertificationStatusApproved}
	}
	return certs
}

func TestComputeIsVerified(t *testing.T) {
	tests := []struct {
		name     string
		approved int
		premium  bool
		want     bool
	}{
		{"nothing", 0, false, false},
		{"one approved", 1, false, true},
		{"premium only", 0, true, true},
		{"both", 3, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeIsVerified(tt.approved, tt.premium))
		})
	}
}

func TestResolveIsVerified_OverrideWins(t *testing.T) {
	yes, no := true, false
	assert.False(t, ResolveIsVerified(&no, 5, true))
	assert.True(t, ResolveIsVerified(&yes, 0, false))
	assert.True(t, ResolveIsVerified(nil, 1, false))
}

func TestComputeHasBadge(t *testing.T) {
	category := uintPtr(3)
	policy := func(allows bool, min int, required ...string) *model.CategoryBadgePolicy {
		return &model.CategoryBadgePolicy{
			CategoryID:             3,
			AllowsBadge:            allows,
			MinCertifications:      min,
			RequiredCertifications: pq.StringArray(required),
		}
	}

	tests := []struct {
		name     string
		category *uint
		policy   *model.CategoryBadgePolicy
		approved []model.Certification
		want     bool
	}{
		{"no policy with five approved", category, nil, approvedCerts("A", "B", "C", "D", "E"), false},
		{"no primary category", nil, policy(true, 0), approvedCerts("A"), false},
		{"badge not allowed", category, policy(false, 0), approvedCerts("ISO9001"), false},
		{"below minimum", category, policy(true, 2), approvedCerts("ISO9001"), false},
		{"required name missing", category, policy(true, 2, "ISO9001"), approvedCerts("ISO14001", "CE", "RoHS"), false},
		{"required name case-insensitive", category, policy(true, 1, " iso9001 "), approvedCerts("ISO9001"), true},
		{"all required present", category, policy(true, 2, "ISO9001", "CE"), approvedCerts("CE", "ISO9001", "RoHS"), true},
		{"count only", category, policy(true, 0), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeHasBadge(tt.category, tt.policy, tt.approved))
		})
	}
}
