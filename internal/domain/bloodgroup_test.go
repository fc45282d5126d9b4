package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatibleDonors(t *testing.T) {
	cases := []struct {
		recipient BloodGroup
		donors    []BloodGroup
	}{
		{BloodONeg, []BloodGroup{BloodONeg}},
		{BloodOPos, []BloodGroup{BloodONeg, BloodOPos}},
		{BloodANeg, []BloodGroup{BloodONeg, BloodANeg}},
		{BloodAPos, []BloodGroup{BloodONeg, BloodOPos, BloodANeg, BloodAPos}},
		{BloodABPos, []BloodGroup{BloodONeg, BloodOPos, BloodANeg, BloodAPos, BloodBNeg, BloodBPos, BloodABNeg, BloodABPos}},
	}
	for _, c := range cases {
		assert.ElementsMatch(t, c.donors, CompatibleDonors(c.recipient), "recipient %s", c.recipient)
	}
}

func TestCompatibleDonors_UnknownGroup(t *testing.T) {
	assert.Nil(t, CompatibleDonors("C+"))
}

func TestCanDonateTo(t *testing.T) {
	// O- 万能供血，AB+ 万能受血
	for _, r := range []BloodGroup{BloodONeg, BloodOPos, BloodANeg, BloodAPos, BloodBNeg, BloodBPos, BloodABNeg, BloodABPos} {
		assert.True(t, CanDonateTo(BloodONeg, r), "O- -> %s", r)
		assert.True(t, CanDonateTo(r, BloodABPos), "%s -> AB+", r)
	}
	assert.False(t, CanDonateTo(BloodAPos, BloodONeg))
	assert.False(t, CanDonateTo(BloodBPos, BloodAPos))
	assert.False(t, CanDonateTo(BloodOPos, BloodANeg))
}

func TestBloodGroupValid(t *testing.T) {
	assert.True(t, BloodGroup("AB-").Valid())
	assert.False(t, BloodGroup("").Valid())
	assert.False(t, BloodGroup("o+").Valid())
}
