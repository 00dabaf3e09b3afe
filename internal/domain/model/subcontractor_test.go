package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

func TestCreateSubcontractorRequest_Validate(t *testing.T) {
	req := CreateSubcontractorRequest{Name: " Ace Plumbing ", Phone: "555.123.4567", Email: "ACE@Example.com"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Ace Plumbing", req.Name)
	assert.Equal(t, "ace@example.com", req.Email)

	req = CreateSubcontractorRequest{Name: "Ace", Phone: "123"}
	assert.Equal(t, "phone", apperrors.GetField(req.Validate()))

	req = CreateSubcontractorRequest{Name: "Ace", Phone: "5551234567", Email: "nope"}
	assert.Equal(t, "email", apperrors.GetField(req.Validate()))
}

func TestUpdateSubcontractorRequest_Validate(t *testing.T) {
	var empty UpdateSubcontractorRequest
	assert.True(t, apperrors.IsValidation(empty.Validate()))

	blank := ""
	req := UpdateSubcontractorRequest{Email: &blank}
	require.NoError(t, req.Validate(), "clearing the email is allowed")

	region := "  North "
	req = UpdateSubcontractorRequest{Region: &region}
	require.NoError(t, req.Validate())
	assert.Equal(t, "North", *req.Region)
}
