package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokuflow/document-pipeline/internal/models"
)

const tenantID = "6f1d2f0a-3f3e-4f2b-9a4e-8a2f9d1c0b7e"

func TestParseStorageKey(t *testing.T) {
	sk, err := ParseStorageKey("accounting-docs/" + tenantID + "/2026/08/inv-001.pdf")
	require.NoError(t, err)

	assert.Equal(t, models.VerticalAccounting, sk.Vertical)
	assert.Equal(t, tenantID, sk.TenantID)
	assert.Equal(t, "inv-001", sk.DocumentID)
	assert.Equal(t, "inv-001.pdf", sk.Filename)
	assert.Equal(t, ".pdf", sk.Ext)
}

func TestParseStorageKeyLegalVertical(t *testing.T) {
	sk, err := ParseStorageKey("legal-docs/" + tenantID + "/contract.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.VerticalLegal, sk.Vertical)
}

func TestParseStorageKeyRejectsUnknownVertical(t *testing.T) {
	_, err := ParseStorageKey("hr-docs/" + tenantID + "/doc.pdf")
	assert.Error(t, err)
}

func TestParseStorageKeyRejectsNonUUIDTenant(t *testing.T) {
	_, err := ParseStorageKey("accounting-docs/tenant-42/doc.pdf")
	assert.Error(t, err)
}

func TestParseStorageKeyRejectsShortKeys(t *testing.T) {
	_, err := ParseStorageKey("accounting-docs/doc.pdf")
	assert.Error(t, err)
}

func TestParseStorageKeyRejectsEmptyDocumentID(t *testing.T) {
	_, err := ParseStorageKey("accounting-docs/" + tenantID + "/.pdf")
	assert.Error(t, err)
}
