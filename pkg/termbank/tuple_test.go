package termbank

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTuple(t *testing.T) {
	e, err := DecodeTuple(json.RawMessage(`["犬","いぬ","n","v5",100,["dog","hound"]]`))
	require.NoError(t, err)
	assert.Equal(t, "犬", e.Word)
	assert.Equal(t, "いぬ", e.Reading)
	assert.Equal(t, "n", e.Kind)
	assert.Equal(t, int64(100), e.Priority)
	assert.Equal(t, []string{"dog", "hound"}, e.Translation)
	assert.Nil(t, e.Provenance)
}

func TestDecodeTupleIgnoresExtraFields(t *testing.T) {
	e, err := DecodeTuple(json.RawMessage(`["猫","ねこ","","",-5.0,["cat"],42,"extra"]`))
	require.NoError(t, err)
	assert.Equal(t, int64(-5), e.Priority)
	assert.Equal(t, []string{"cat"}, e.Translation)
}

func TestDecodeTupleWidePriority(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want int64
	}{
		"past int32":     {`["犬","","","",3000000000,[]]`, 3000000000},
		"negative wide":  {`["犬","","","",-3000000000,[]]`, -3000000000},
		"max int64":      {`["犬","","","",9223372036854775807,[]]`, math.MaxInt64},
		"float exponent": {`["犬","","","",3e9,[]]`, 3000000000},
		"fraction":       {`["犬","","","",-7.9,[]]`, -7},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e, err := DecodeTuple(json.RawMessage(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, e.Priority)
		})
	}

	_, err := DecodeTuple(json.RawMessage(`["犬","","","",1e30,[]]`))
	assert.Error(t, err)
	_, err = DecodeTuple(json.RawMessage(`["犬","","","",1e400,[]]`))
	assert.Error(t, err)
}

func TestDecodeTupleRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not an array":   `{"word":"犬"}`,
		"too short":      `["犬","いぬ","n","",100]`,
		"null word":      `[null,"いぬ","n","",100,["dog"]]`,
		"numeric word":   `[1,"いぬ","n","",100,["dog"]]`,
		"string prio":    `["犬","いぬ","n","","high",["dog"]]`,
		"object glosses": `["犬","いぬ","n","",1,[{"type":"structured-content"}]]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTuple(json.RawMessage(raw))
			assert.Error(t, err)
		})
	}
}

func TestDecodeShardProvenance(t *testing.T) {
	data := []byte(`[["犬","いぬ","n","",100,["dog"]],["猫","ねこ","n","",90,["cat"]]]`)
	entries, err := DecodeShard("term_bank_7.json", data, true)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for i, e := range entries {
		require.NotNil(t, e.Provenance)
		assert.Equal(t, "term_bank_7.json", e.Provenance.Shard)
		assert.Equal(t, i, e.Provenance.Position)
	}
}

func TestDecodeShardErrors(t *testing.T) {
	_, err := DecodeShard("term_bank_1.json", []byte(`[["a","","","",1,["x"]],["b"]]`), false)
	var decErr *EntryDecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "term_bank_1.json", decErr.Shard)
	assert.Equal(t, 1, decErr.Position)

	_, err = DecodeShard("term_bank_2.json", []byte(`not json`), false)
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, -1, decErr.Position)

	_, err = DecodeShard("term_bank_3.json", []byte(`null`), false)
	assert.True(t, errors.As(err, &decErr))
}

func TestEncodeShard(t *testing.T) {
	entries := []Entry{
		{Word: "犬", Reading: "いぬ", Kind: "n", Priority: 100, Translation: []string{"dog"}},
		{Word: "空", Priority: 0},
	}
	data, err := EncodeShard(entries)
	require.NoError(t, err)
	assert.Equal(t, `[["犬","いぬ","n","",100,["dog"]],["空","","","",0,[]]]`, string(data))
}

func TestEncodeDecodeKeepsHTMLCharacters(t *testing.T) {
	in := []Entry{{Word: "<a&b>", Translation: []string{"x > y"}}}
	data, err := EncodeShard(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<a&b>")

	out, err := DecodeShard("term_bank_1.json", data, false)
	require.NoError(t, err)
	assert.Equal(t, in[0].Word, out[0].Word)
	assert.Equal(t, in[0].Translation, out[0].Translation)
}
