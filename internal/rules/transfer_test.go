package rules

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintally/tally/internal/model"
)

func TestCollectionExportImportRoundTrip(t *testing.T) {
	collection := testCollection()

	var buf bytes.Buffer
	require.NoError(t, ExportCollection(&buf, collection))

	imported, err := ImportCollection(&buf)
	require.NoError(t, err)
	assert.Equal(t, collection.Name, imported.Name)
	assert.Equal(t, collection.Enabled, imported.Enabled)
	require.Len(t, imported.Rules, len(collection.Rules))
	assert.Equal(t, collection.Rules[0].Conditions, imported.Rules[0].Conditions)
}

func TestImportRejectsInvalidRules(t *testing.T) {
	collection := testCollection()
	collection.Rules[0].Conditions[0].Op = model.OpContains // text op on amount field

	var buf bytes.Buffer
	require.NoError(t, ExportCollection(&buf, collection))

	_, err := ImportCollection(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid for amount")
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	_, err := ImportCollection(strings.NewReader(`{"version": 99, "name": "x", "rules": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported rule collection file version")
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	_, err := ImportCollection(strings.NewReader("{nope"))
	assert.Error(t, err)
}

func TestImportRejectsDuplicateRuleIDs(t *testing.T) {
	collection := testCollection()
	collection.Rules[1].ID = collection.Rules[0].ID

	var buf bytes.Buffer
	require.NoError(t, ExportCollection(&buf, collection))

	_, err := ImportCollection(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule id")
}
