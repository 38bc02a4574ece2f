package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryKeysAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Definitions() {
		assert.False(t, seen[d.Key], d.Key)
		seen[d.Key] = true
		assert.NotNil(t, d.build, d.Key)
		assert.NotNil(t, d.summary, d.Key)
		assert.NotNil(t, d.result, d.Key)
	}
	assert.Len(t, seen, 10)
}

func TestMatches(t *testing.T) {
	pan, _ := Lookup("pan-to-tan")
	assert.True(t, pan.Matches("Signzy PAN to TAN search"))

	bank, _ := Lookup("bank-account-verification")
	assert.True(t, bank.Matches("Bank Account Verification"))
	assert.False(t, bank.Matches("bank account verification v2"))
}

func TestFSSAIStripsStatePrefix(t *testing.T) {
	d, _ := Lookup("fssai-verification")

	r, err := d.build(Input{"licenseNumber": " ka12345678901234 "})
	require.NoError(t, err)
	assert.Equal(t, "12345678901234", r.inputData)
	assert.Equal(t, map[string]any{"licenseNumber": "12345678901234", "getCategorizedProductList": true}, r.body)

	_, err = d.build(Input{"licenseNumber": "123"})
	assert.Error(t, err)
}

func TestAMLDefaults(t *testing.T) {
	d, _ := Lookup("aml-cft-ndd")

	r, err := d.build(Input{"name": "John Doe"})
	require.NoError(t, err)
	body := r.body.(map[string]any)
	assert.Equal(t, "individual", body["type"])
	assert.Equal(t, []string{"AML", "CFT", "NONCOMPLIANCE", "LENDING"}, body["category"])
	assert.Equal(t, "INDIA", body["country"])
	assert.Equal(t, "0.50", body["matchScoreThreshold"])

	summary := d.summary(r, map[string]any{"result": map[string]any{"matchStatus": "NO_MATCH"}})
	assert.Equal(t, "NDD results found for John Doe: NO_MATCH", summary)
}

func TestBankAccountDropsEmptyOptionals(t *testing.T) {
	d, _ := Lookup("bank-account-verification")

	r, err := d.build(Input{"beneficiaryAccount": "0001", "beneficiaryIFSC": "sbin0000001", "beneficiaryName": ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"beneficiaryAccount": "0001", "beneficiaryIFSC": "SBIN0000001"}, r.body)

	_, err = d.build(Input{"beneficiaryAccount": "0001"})
	assert.EqualError(t, err, "beneficiaryAccount, beneficiaryIFSC is required")
}

func TestCreditReportValidation(t *testing.T) {
	d, _ := Lookup("credit-report")
	base := func() Input {
		return Input{"full_name": "A", "id_number": "B", "mobile_number": "9876543210", "gender": "female"}
	}

	_, err := d.build(base())
	require.NoError(t, err)

	in := base()
	in["mobile_number"] = "98765"
	_, err = d.build(in)
	assert.Error(t, err)

	in = base()
	in["consent"] = "N"
	_, err = d.build(in)
	assert.EqualError(t, err, "consent must be Y")

	in = base()
	in["gender"] = "x"
	_, err = d.build(in)
	assert.Error(t, err)
}

func TestEmployeeNameSearchReportsMissing(t *testing.T) {
	d, _ := Lookup("employee-name-search")
	_, err := d.build(Input{"establishmentId": "E1", "employeeName": "Ravi"})
	assert.EqualError(t, err, "establishmentName, employmentMonth is required")
}
