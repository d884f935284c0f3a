package records

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocument(t *testing.T) {
	t.Parallel()

	doc, err := DecodeDocument([]byte(`{"timestamp": 1700000000, "amount": 12.5}`))
	require.NoError(t, err)
	ts, ok := doc.Timestamp()
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), ts)
	assert.Equal(t, json.Number("12.5"), doc["amount"])

	_, err = DecodeDocument([]byte(`[1, 2]`))
	assert.Error(t, err)
	_, err = DecodeDocument([]byte(`null`))
	assert.Error(t, err)
}

func TestApplyRemovesEmptyValues(t *testing.T) {
	t.Parallel()

	doc := Document{"note": "call back", "tags": "vip", "keep": "yes"}
	doc.Apply(Patch{"note": "", "tags": nil, "next_contact": "2025-04-01"})
	assert.Equal(t, Document{"keep": "yes", "next_contact": "2025-04-01"}, doc)
}

func TestMetaPatch(t *testing.T) {
	t.Parallel()

	patch := MetaPatch(" vip,\nhot ,, ", "  ring at noon ", "2025-13")
	assert.Equal(t, "vip, hot", patch[FieldTags])
	assert.Equal(t, "ring at noon", patch[FieldNote])
	assert.Nil(t, patch[FieldNextContact])
	assert.Contains(t, patch, FieldNextContact)

	patch = MetaPatch("", "", "2025-04-01")
	assert.Equal(t, "2025-04-01", patch[FieldNextContact])
}

func TestKindIDs(t *testing.T) {
	t.Parallel()

	id := KindLead.NewID(1700000000, "0a1b2c3d")
	assert.Equal(t, "lead_1700000000_0a1b2c3d.json", id)
	assert.True(t, KindLead.ValidID(id))
	assert.False(t, KindAgreement.ValidID(id))
	assert.False(t, KindLead.ValidID("../lead_1_2.json"))
	assert.False(t, KindLead.ValidID("lead_.json"))
	assert.Equal(t, "0a1b2c3d", ShortID(id))
	assert.Equal(t, "shortone", ShortID("shortone.json"))
	assert.True(t, strings.HasPrefix(KindAgreement.NewID(1, "ff"), "agreement_"))
}

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()

	docs := []Document{
		{FieldFile: "lead_100_b.json", FieldTimestamp: json.Number("100")},
		{FieldFile: "lead_200_a.json", FieldTimestamp: json.Number("200")},
		{FieldFile: "lead_100_a.json", FieldTimestamp: json.Number("100")},
		{FieldFile: "lead_0_z.json"},
	}
	SortNewestFirst(docs)

	var files []string
	for _, d := range docs {
		files = append(files, d.File())
	}
	assert.Equal(t, []string{"lead_200_a.json", "lead_100_a.json", "lead_100_b.json", "lead_0_z.json"}, files)
}
