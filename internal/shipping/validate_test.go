package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_AcceptsTypicalPackage(t *testing.T) {
	ok, errs := Validate(PackageSpec{Weight: 5, Length: 20, Width: 20, Height: 20})
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidate_AcceptsBoundaryValues(t *testing.T) {
	// 30kg, 160cm sides are inclusive limits; 50+50+160=260 hits the
	// combined ceiling exactly.
	ok, errs := Validate(PackageSpec{Weight: 30, Length: 160, Width: 50, Height: 50})
	assert.True(t, ok, "errors: %v", errs)
}

func TestValidate_RejectsNonPositiveWeight(t *testing.T) {
	ok, errs := Validate(PackageSpec{Weight: 0, Length: 10, Width: 10, Height: 10})
	assert.False(t, ok)
	assert.Contains(t, errs, "weight must be greater than 0")

	ok, errs = Validate(PackageSpec{Weight: -2, Length: 10, Width: 10, Height: 10})
	assert.False(t, ok)
	assert.Contains(t, errs, "weight must be greater than 0")
}

func TestValidate_RejectsOverweight(t *testing.T) {
	ok, errs := Validate(PackageSpec{Weight: 35, Length: 10, Width: 10, Height: 10})
	assert.False(t, ok)
	assert.Equal(t, []string{"weight must be 30kg or less"}, errs)
}

func TestValidate_RejectsOversizeSide(t *testing.T) {
	ok, errs := Validate(PackageSpec{Weight: 5, Length: 170, Width: 10, Height: 10})
	assert.False(t, ok)
	assert.Equal(t, []string{"each dimension must be 160cm or less"}, errs)
}

func TestValidate_RejectsCombinedSizeEvenWhenSidesPass(t *testing.T) {
	// Each side within 160cm but 100+100+100 exceeds the 260cm sum.
	ok, errs := Validate(PackageSpec{Weight: 5, Length: 100, Width: 100, Height: 100})
	assert.False(t, ok)
	assert.Equal(t, []string{"combined dimensions must be 260cm or less"}, errs)
}

func TestValidate_RejectsNonPositiveDimensionWithSingleMessage(t *testing.T) {
	ok, errs := Validate(PackageSpec{Weight: 5, Length: 0, Width: -3, Height: 10})
	assert.False(t, ok)
	assert.Equal(t, []string{"each dimension must be greater than 0"}, errs)
}

func TestValidate_AccumulatesAllViolations(t *testing.T) {
	// Every rule violated at once; nothing short-circuits.
	ok, errs := Validate(PackageSpec{Weight: 40, Length: 170, Width: 170, Height: -1})
	assert.False(t, ok)
	assert.Equal(t, []string{
		"weight must be 30kg or less",
		"each dimension must be greater than 0",
		"each dimension must be 160cm or less",
		"combined dimensions must be 260cm or less",
	}, errs)
}
