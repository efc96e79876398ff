package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validCreate() CreateListing {
	return CreateListing{
		Name:      "Max",
		Breed:     "Teckel",
		AgeMonths: ptr(4),
		Price:     ptr(1200.0),
		Gender:    GenderMale,
		Size:      SizeSmall,
	}
}

func TestCreateListing_Defaults(t *testing.T) {
	l, err := validCreate().Listing()
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, l.Status)
	assert.False(t, l.IsFeatured)
	assert.Equal(t, "Max", l.Name)
	assert.Nil(t, l.ImageURL)
}

func TestCreateListing_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*CreateListing)
		field string
	}{
		{"missing name", func(c *CreateListing) { c.Name = "" }, "name"},
		{"blank breed", func(c *CreateListing) { c.Breed = "   " }, "breed"},
		{"missing age", func(c *CreateListing) { c.AgeMonths = nil }, "age_months"},
		{"zero age", func(c *CreateListing) { c.AgeMonths = ptr(0) }, "age_months"},
		{"missing price", func(c *CreateListing) { c.Price = nil }, "price"},
		{"negative price", func(c *CreateListing) { c.Price = ptr(-1.0) }, "price"},
		{"bad gender", func(c *CreateListing) { c.Gender = "cat" }, "gender"},
		{"missing size", func(c *CreateListing) { c.Size = "" }, "size"},
		{"bad size", func(c *CreateListing) { c.Size = "huge" }, "size"},
		{"bad status", func(c *CreateListing) { c.Status = ptr(Status("lost")) }, "status"},
		{"bad image", func(c *CreateListing) { c.ImageURL = ptr("not a url") }, "image_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreate()
			tc.mut(&in)
			_, err := in.Listing()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tc.field)
		})
	}
}

func TestCreateListing_FreePriceAllowed(t *testing.T) {
	in := validCreate()
	in.Price = ptr(0.0)
	_, err := in.Listing()
	assert.NoError(t, err)
}

func TestUpdateListing_Apply(t *testing.T) {
	l, err := validCreate().Listing()
	require.NoError(t, err)

	require.NoError(t, UpdateListing{Status: ptr(StatusSold)}.Apply(l))
	assert.Equal(t, StatusSold, l.Status)
	assert.Equal(t, "Max", l.Name)
	assert.Equal(t, 1200.0, l.Price)

	err = UpdateListing{Size: ptr(Size("xl"))}.Apply(l)
	assert.ErrorIs(t, err, ErrValidation)

	l.Size = SizeSmall
	require.NoError(t, UpdateListing{ImageURL: ptr("")}.Apply(l))
	assert.Nil(t, l.ImageURL)
}

func TestIsAllBreeds(t *testing.T) {
	assert.True(t, IsAllBreeds(""))
	assert.True(t, IsAllBreeds("all"))
	assert.False(t, IsAllBreeds("Teckel"))
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"size": "bad", "age_months": "bad"}}
	assert.Equal(t, "validation failed: age_months: bad; size: bad", err.Error())
}
