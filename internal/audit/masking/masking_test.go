package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("1234"))
	assert.Equal(t, "****6789", MaskSecret("0123456789"))
}

func TestMaskFieldsLeavesInputUntouched(t *testing.T) {
	in := map[string]any{"account_id": "970412345678", "provider": "momo"}
	out := MaskFields(in, "account_id", "missing")

	assert.Equal(t, "****5678", out["account_id"])
	assert.Equal(t, "momo", out["provider"])
	assert.Equal(t, "970412345678", in["account_id"])
}
