package tax

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FilingStatus is the status a return was (or is projected to be) filed under.
type FilingStatus string

const (
	FilingSingle          FilingStatus = "single"
	FilingMarriedJoint    FilingStatus = "married_joint"
	FilingMarriedSeparate FilingStatus = "married_separate"
	FilingHeadOfHousehold FilingStatus = "head_of_household"
	FilingQualifyingWidow FilingStatus = "qualifying_widow"
)

func (s FilingStatus) Validate() error {
	switch s {
	case FilingSingle, FilingMarriedJoint, FilingMarriedSeparate, FilingHeadOfHousehold, FilingQualifyingWidow:
		return nil
	}

	return fmt.Errorf("%w: unsupported filing status %q", ErrInvalidInput, s)
}

// Owner identifies whose tax id an income document was issued to.
type Owner string

const (
	OwnerTaxpayer Owner = "taxpayer"
	OwnerSpouse   Owner = "spouse"
)

// Location is the filing jurisdiction used for local expense standards.
type Location struct {
	State  string `json:"state" yaml:"state"`
	County string `json:"county,omitempty" yaml:"county"`
}

// Case is one taxpayer engagement.
type Case struct {
	ID         uuid.UUID  `json:"id"`
	CaseNumber string     `json:"case_number"`
	PrimaryID  string     `json:"primary_id"`          // tax id surrogate of the primary taxpayer
	SpouseID   string     `json:"spouse_id,omitempty"` // empty when there is no spouse on the case
	Location   Location   `json:"location"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// OwnerOf maps an income document's recipient id to the taxpayer or spouse.
func (c *Case) OwnerOf(id string) (Owner, error) {
	switch {
	case id != "" && id == c.PrimaryID:
		return OwnerTaxpayer, nil
	case id != "" && id == c.SpouseID:
		return OwnerSpouse, nil
	}

	return "", fmt.Errorf("%w: recipient %q is neither taxpayer nor spouse on case %s", ErrInvalidInput, id, c.CaseNumber)
}

// TaxYear is one year of a case's exposure.
type TaxYear struct {
	ID           uuid.UUID    `json:"id"`
	CaseID       uuid.UUID    `json:"case_id"`
	Year         int          `json:"year"`
	FilingStatus FilingStatus `json:"filing_status"`
	ReturnFiled  bool         `json:"return_filed"`
	// ReturnFiledDate anchors every statute computation for the year.
	ReturnFiledDate *time.Time `json:"return_filed_date,omitempty"`
	// StandardDeductionDisallowed is set when the filing status rules out the
	// standard deduction (e.g. separate filers whose spouse itemizes).
	StandardDeductionDisallowed bool `json:"standard_deduction_disallowed,omitempty"`
}

func (ty *TaxYear) Validate() error {
	if ty.Year < 1900 || ty.Year > 9999 {
		return fmt.Errorf("%w: tax year %d out of range", ErrInvalidInput, ty.Year)
	}

	return ty.FilingStatus.Validate()
}
