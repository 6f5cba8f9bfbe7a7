package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var incorporation = []string{
	"Articles of Association",
	"Memorandum of Association",
	"Incorporation Application Form",
	"UBO Declaration Form",
	"Register of Members and Directors",
}

func TestVerifyAllPresent(t *testing.T) {
	got := Verify(incorporation, incorporation)
	assert.Empty(t, got.Missing)
	assert.Empty(t, got.Extra)
}

func TestVerifyMissingPreservesChecklistOrder(t *testing.T) {
	got := Verify([]string{"Memorandum of Association", "UBO Declaration Form"}, incorporation)

	assert.Equal(t, []string{
		"Articles of Association",
		"Incorporation Application Form",
		"Register of Members and Directors",
	}, got.Missing)
	assert.Empty(t, got.Extra)
}

func TestVerifyExtraInformational(t *testing.T) {
	got := Verify([]string{
		"Articles of Association",
		"Board Resolution",
		"Business Plan",
	}, incorporation)

	assert.Equal(t, []string{"Board Resolution", "Business Plan"}, got.Extra)
	assert.NotContains(t, got.Missing, "Articles of Association")
}

func TestVerifyMissingNeverContainsUploaded(t *testing.T) {
	uploaded := []string{"Articles of Association", "UBO Declaration Form"}
	got := Verify(uploaded, incorporation)

	for _, u := range uploaded {
		assert.NotContains(t, got.Missing, u)
	}
}

func TestVerifyIgnoresEmptyAndDuplicateTypes(t *testing.T) {
	got := Verify([]string{"", "Board Resolution", "Board Resolution", ""}, incorporation)

	assert.Equal(t, []string{"Board Resolution"}, got.Extra)
	assert.Len(t, got.Missing, len(incorporation))
}

func TestVerifyEmptyChecklist(t *testing.T) {
	got := Verify([]string{"Articles of Association"}, nil)

	assert.Empty(t, got.Missing)
	assert.Equal(t, []string{"Articles of Association"}, got.Extra)
}
