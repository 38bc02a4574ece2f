package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	cases := map[string]Action{
		"Deduction": ActionDeduction,
		"topup":     ActionTopUp,
		"Top-up":    ActionTopUp,
		" renewal ": ActionRenewal,
		"REFUND":    ActionRefund,
	}
	for in, want := range cases {
		got, ok := ParseAction(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseAction("gift")
	assert.False(t, ok)

	assert.True(t, ActionRenewal.GrowsTotal())
	assert.True(t, ActionTopUp.GrowsTotal())
	assert.False(t, ActionRefund.GrowsTotal())
	assert.False(t, ActionDeduction.GrowsTotal())
}

func TestParseInputType(t *testing.T) {
	got, ok := ParseInputType("pan")
	require.True(t, ok)
	assert.Equal(t, InputPAN, got)

	_, ok = ParseInputType("vehicle")
	assert.False(t, ok)
}

func TestRatePlanExpiry(t *testing.T) {
	start := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)

	var p RatePlan
	assert.False(t, p.Expires())

	zero := 0
	p.ValidityDays = &zero
	assert.False(t, p.Expires())

	days := 30
	p.ValidityDays = &days
	assert.True(t, p.Expires())
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), p.ExpiryFrom(start))
}

func TestOfficerPlanAnchor(t *testing.T) {
	reg := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o := Officer{RegisteredOn: reg}
	assert.Equal(t, reg, o.PlanAnchor())

	start := reg.AddDate(0, 1, 0)
	o.PlanStartDate = &start
	assert.Equal(t, start, o.PlanAnchor())
}

func TestAPIMasked(t *testing.T) {
	assert.Equal(t, "****cdef", API{APIKey: "0123456789abcdef"}.Masked().APIKey)
	assert.Equal(t, "****", API{APIKey: "abc"}.Masked().APIKey)
	assert.Equal(t, "", API{}.Masked().APIKey)
}

func TestRawJSON(t *testing.T) {
	var j RawJSON
	require.NoError(t, j.Scan([]byte(`{"a":1}`)))
	out, err := json.Marshal(struct {
		R RawJSON `json:"r"`
	}{j})
	require.NoError(t, err)
	assert.JSONEq(t, `{"r":{"a":1}}`, string(out))

	require.NoError(t, j.Scan(nil))
	v, err := j.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	out, err = json.Marshal(j)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	assert.Error(t, j.Scan(42))
}
