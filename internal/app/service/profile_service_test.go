package service

import (
	"context"
	"testing"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestProfileService_BuyerUpdate(t *testing.T) {
	f := setupTrustTest(t)
	buyer := f.createBuyer(t)

	user, err := f.profiles.UpdateProfile(context.Background(), Actor{}, buyer.ID, BuyerUpdate{
		Name:  strPtr("  Kim  "),
		Phone: strPtr("010-1234-5678"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Kim", user.Name)
	assert.Equal(t, "010-1234-5678", user.Phone)
}

func TestProfileService_SellerUpdateRequiresSellerRole(t *testing.T) {
	f := setupTrustTest(t)
	buyer := f.createBuyer(t)

	_, err := f.profiles.UpdateProfile(context.Background(), Actor{}, buyer.ID, SellerUpdate{CompanyName: strPtr("ACME")})
	assert.ErrorIs(t, err, ErrInvalidProfileUpdate)

	_, err = f.profiles.UpdateProfile(context.Background(), Actor{}, 404, BuyerUpdate{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfileService_SellerUpdateLeavesTrustAlone(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "ISO9001")
	_, err := f.verification.Recompute(ctx, seller.ID)
	require.NoError(t, err)

	_, err = f.profiles.UpdateProfile(ctx, Actor{}, seller.ID, SellerUpdate{
		CompanyName: strPtr("ACME Industrial"),
		Description: strPtr("Valves and pumps"),
	})
	require.NoError(t, err)

	profile := f.profile(t, seller.ID)
	assert.Equal(t, "ACME Industrial", profile.CompanyName)
	assert.Equal(t, "Valves and pumps", profile.Description)
	assert.True(t, profile.IsVerified)
}

func TestProfileService_PrimaryCategoryChangeRecomputes(t *testing.T) {
	f := setupTrustTest(t)
	ctx := context.Background()
	category := f.createCategory(t, "valves")
	_, err := f.policies.Create(ctx, adminActor(900), category.ID, BadgePolicyInput{
		AllowsBadge:            true,
		MinCertifications:      1,
		RequiredCertifications: []string{"API 6D"},
	})
	require.NoError(t, err)

	seller := f.createSeller(t, nil)
	f.seedApproved(t, seller.ID, "api 6d")

	actor := Actor{Role: string(model.RoleSeller)}
	_, err = f.profiles.UpdateProfile(ctx, actor, seller.ID, SellerExtendedUpdate{PrimaryCategoryID: &category.ID})
	require.NoError(t, err)

	profile := f.profile(t, seller.ID)
	require.NotNil(t, profile.PrimaryCategoryID)
	assert.Equal(t, category.ID, *profile.PrimaryCategoryID)
	assert.True(t, profile.HasVerifiedBadge)
	assert.True(t, profile.IsVerified)

	entries := f.auditEntries(t, seller.ID, model.AuditActionPrimaryCategoryChanged)
	require.Len(t, entries, 1)
	after, err := entries[0].After.Data().DecodeTrust()
	require.NoError(t, err)
	require.NotNil(t, after.PrimaryCategoryID)
	assert.Equal(t, category.ID, *after.PrimaryCategoryID)

	_, err = f.profiles.UpdateProfile(ctx, actor, seller.ID, SellerExtendedUpdate{ClearPrimaryCategory: true})
	require.NoError(t, err)
	profile = f.profile(t, seller.ID)
	assert.Nil(t, profile.PrimaryCategoryID)
	assert.False(t, profile.HasVerifiedBadge)
	assert.Len(t, f.auditEntries(t, seller.ID, model.AuditActionPrimaryCategoryChanged), 2)
}

func TestProfileService_UnknownCategoryRejected(t *testing.T) {
	f := setupTrustTest(t)
	seller := f.createSeller(t, nil)

	_, err := f.profiles.UpdateProfile(context.Background(), Actor{}, seller.ID, SellerExtendedUpdate{PrimaryCategoryID: uintPtr(404)})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.Nil(t, f.profile(t, seller.ID).PrimaryCategoryID)
	assert.Equal(t, int64(0), f.countRows(t, &model.AuditLog{}))
}
