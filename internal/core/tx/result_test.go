package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultCategories(t *testing.T) {
	tests := []struct {
		result  Result
		success bool
		tec     bool
		tef     bool
		tem     bool
	}{
		{TesSUCCESS, true, false, false, false},
		{TecNO_PERMISSION, false, true, false, false},
		{TecOBJECT_NOT_FOUND, false, true, false, false},
		{TecACCOUNT_MISMATCH, false, true, false, false},
		{TefALREADY, false, false, true, false},
		{TefMAX_LEDGER, false, false, true, false},
		{TemMALFORMED, false, false, false, true},
		{TemSAME_ASSET, false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			assert.Equal(t, tt.success, tt.result.IsSuccess())
			assert.Equal(t, tt.tec, tt.result.IsTec())
			assert.Equal(t, tt.tef, tt.result.IsTef())
			assert.Equal(t, tt.tem, tt.result.IsTem())
		})
	}
}

func TestResultKinds(t *testing.T) {
	assert.Equal(t, "Unauthorized", TecNO_PERMISSION.Kind())
	assert.Equal(t, "DuplicateOffer", TecDUPLICATE.Kind())
	assert.Equal(t, "InsufficientBalance", TecINSUFFICIENT_FUNDS.Kind())
	assert.Equal(t, "OfferNotFound", TecOBJECT_NOT_FOUND.Kind())
	assert.Equal(t, "PaymentTermsMismatch", TecTERMS_MISMATCH.Kind())
	assert.Equal(t, "AmountOverflow", TecOVERFLOW.Kind())
	assert.Equal(t, "AccountMismatch", TecACCOUNT_MISMATCH.Kind())
	assert.Equal(t, "InvalidAmount", TemBAD_AMOUNT.Kind())
	assert.Equal(t, "SameAssetKind", TemSAME_ASSET.Kind())
	assert.Empty(t, TesSUCCESS.Kind())
}

func TestResultStrings(t *testing.T) {
	assert.Equal(t, "tesSUCCESS", TesSUCCESS.String())
	assert.Equal(t, "tecOBJECT_NOT_FOUND", TecOBJECT_NOT_FOUND.String())
	assert.Equal(t, "Unknown(42)", Result(42).String())
	assert.Equal(t, "Unknown", Result(42).Kind())
	assert.Equal(t, "Unknown result code.", Result(42).Message())

	for _, r := range []Result{TesSUCCESS, TecDUPLICATE, TefBAD_AUTH, TemBAD_SIGNATURE} {
		parsed, ok := ResultFromString(r.String())
		assert.True(t, ok)
		assert.Equal(t, r, parsed)
	}
	_, ok := ResultFromString("tecNOPE")
	assert.False(t, ok)
}
