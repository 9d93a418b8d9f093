package service_test

import (
	"context"
	"testing"

	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	submitted, err := f.svc.SubmitLead(ctx, models.LeadRequest{
		Name:        "Sam Builder",
		Email:       "Sam@Example.com",
		PhoneNo:     "0411111111",
		ProjectType: "Renovation",
		Message:     "Kitchen extension quote please",
	})
	require.NoError(t, err)
	assert.Equal(t, "Request submitted successfully", submitted.Message)
	assert.Equal(t, "sam@example.com", submitted.Lead.Email)
	assert.False(t, submitted.Lead.Verified)
	require.NotEmpty(t, submitted.Lead.ID)

	leads, err := f.svc.ListLeads(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)

	verified, err := f.svc.VerifyLead(ctx, submitted.Lead.ID)
	require.NoError(t, err)
	assert.True(t, verified.Lead.Verified)

	// verifying twice is harmless
	verified, err = f.svc.VerifyLead(ctx, submitted.Lead.ID)
	require.NoError(t, err)
	assert.True(t, verified.Lead.Verified)

	_, err = f.svc.VerifyLead(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSubmitLeadRequiresNameAndEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitLead(context.Background(), models.LeadRequest{Name: "  ", Email: "a@b.co"})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.SubmitLead(context.Background(), models.LeadRequest{Name: "Ann"})
	assert.ErrorIs(t, err, service.ErrValidation)
}
