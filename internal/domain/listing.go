package domain

import (
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusSold      Status = "sold"
)

// BreedAll is the list filter sentinel meaning "no breed filter".
const BreedAll = "all"

// Listing is one dog offered in the catalog.
type Listing struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          string    `gorm:"size:128;not null" json:"name" validate:"required,notblank,max=128"`
	Breed         string    `gorm:"size:128;not null;index" json:"breed" validate:"required,notblank,max=128"`
	AgeMonths     int       `gorm:"not null" json:"age_months" validate:"min=1"`
	Price         float64   `gorm:"not null" json:"price" validate:"min=0"`
	Gender        Gender    `gorm:"size:16;not null" json:"gender" validate:"oneof=male female"`
	Size          Size      `gorm:"size:16;not null" json:"size" validate:"oneof=small medium large"`
	Status        Status    `gorm:"size:16;not null;default:available" json:"status" validate:"oneof=available reserved sold"`
	DescriptionFR *string   `gorm:"type:text" json:"description_fr"`
	DescriptionEN *string   `gorm:"type:text" json:"description_en"`
	ImageURL      *string   `gorm:"size:2048" json:"image_url" validate:"omitempty,url"`
	IsFeatured    bool      `gorm:"not null;default:false" json:"is_featured"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Listing) TableName() string { return "listings" }

// Validate checks every invariant of a stored listing.
func (l *Listing) Validate() error { return Struct(l) }

// CreateListing is the body accepted when adding a listing. Pointer fields
// distinguish "missing" from zero values.
type CreateListing struct {
	Name          string   `json:"name" validate:"required,notblank"`
	Breed         string   `json:"breed" validate:"required,notblank"`
	AgeMonths     *int     `json:"age_months" validate:"required"`
	Price         *float64 `json:"price" validate:"required"`
	Gender        Gender   `json:"gender" validate:"required,oneof=male female"`
	Size          Size     `json:"size" validate:"required,oneof=small medium large"`
	Status        *Status  `json:"status"`
	DescriptionFR *string  `json:"description_fr"`
	DescriptionEN *string  `json:"description_en"`
	ImageURL      *string  `json:"image_url"`
	IsFeatured    *bool    `json:"is_featured"`
}

// Listing builds a new listing from the body, applying defaults. The result
// still has to pass Validate.
func (in CreateListing) Listing() (*Listing, error) {
	if err := Struct(in); err != nil {
		return nil, err
	}
	l := &Listing{
		Name:          strings.TrimSpace(in.Name),
		Breed:         strings.TrimSpace(in.Breed),
		AgeMonths:     *in.AgeMonths,
		Price:         *in.Price,
		Gender:        in.Gender,
		Size:          in.Size,
		Status:        StatusAvailable,
		DescriptionFR: in.DescriptionFR,
		DescriptionEN: in.DescriptionEN,
		ImageURL:      blankToNil(in.ImageURL),
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	if in.IsFeatured != nil {
		l.IsFeatured = *in.IsFeatured
	}
	return l, l.Validate()
}

// UpdateListing is a partial update; nil fields are left untouched.
type UpdateListing struct {
	Name          *string  `json:"name"`
	Breed         *string  `json:"breed"`
	AgeMonths     *int     `json:"age_months"`
	Price         *float64 `json:"price"`
	Gender        *Gender  `json:"gender"`
	Size          *Size    `json:"size"`
	Status        *Status  `json:"status"`
	DescriptionFR *string  `json:"description_fr"`
	DescriptionEN *string  `json:"description_en"`
	ImageURL      *string  `json:"image_url"`
	IsFeatured    *bool    `json:"is_featured"`
}

// Apply merges the supplied fields onto l and re-validates the result.
func (u UpdateListing) Apply(l *Listing) error {
	if u.Name != nil {
		l.Name = strings.TrimSpace(*u.Name)
	}
	if u.Breed != nil {
		l.Breed = strings.TrimSpace(*u.Breed)
	}
	if u.AgeMonths != nil {
		l.AgeMonths = *u.AgeMonths
	}
	if u.Price != nil {
		l.Price = *u.Price
	}
	if u.Gender != nil {
		l.Gender = *u.Gender
	}
	if u.Size != nil {
		l.Size = *u.Size
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.DescriptionFR != nil {
		l.DescriptionFR = u.DescriptionFR
	}
	if u.DescriptionEN != nil {
		l.DescriptionEN = u.DescriptionEN
	}
	if u.ImageURL != nil {
		l.ImageURL = blankToNil(u.ImageURL)
	}
	if u.IsFeatured != nil {
		l.IsFeatured = *u.IsFeatured
	}
	return l.Validate()
}

// IsAllBreeds reports whether breed means "no filter".
func IsAllBreeds(breed string) bool {
	b := strings.TrimSpace(breed)
	return b == "" || b == BreedAll
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
