package genesis

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"slotbft/types"
)

func writeTempGenesis(t *testing.T, body string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.json")
	assert.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDocParsesDelegates(t *testing.T) {
	_, priv := types.RandValidator()
	pubHex := hexEncode(priv.PubKey().Bytes())

	path := writeTempGenesis(t, `{"chain_id":"test","genesis_time":0,"delegates":[{"pub_key":"`+pubHex+`"}]}`)
	doc, err := LoadDoc(path)
	assert.NoError(t, err)
	assert.Equal(t, "test", doc.ChainID)
	assert.Len(t, doc.Delegates, 1)
}

func TestLoadDocRejectsEmptyDelegateList(t *testing.T) {
	path := writeTempGenesis(t, `{"chain_id":"test","delegates":[]}`)
	_, err := LoadDoc(path)
	assert.Error(t, err)
}

func TestLoadDocRejectsMissingFile(t *testing.T) {
	_, err := LoadDoc(filepath.Join(os.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}

func TestValidatorSetRejectsMalformedPubKey(t *testing.T) {
	path := writeTempGenesis(t, `{"chain_id":"test","delegates":[{"pub_key":"not-hex"}]}`)
	doc, err := LoadDoc(path)
	assert.NoError(t, err)
	_, err = doc.ValidatorSet()
	assert.Error(t, err)
}

func TestValidatorSetBuildsUsableSet(t *testing.T) {
	_, priv1 := types.RandValidator()
	_, priv2 := types.RandValidator()

	path := writeTempGenesis(t, `{"chain_id":"test","delegates":[{"pub_key":"`+hexEncode(priv1.PubKey().Bytes())+`"},{"pub_key":"`+hexEncode(priv2.PubKey().Bytes())+`"}]}`)
	doc, err := LoadDoc(path)
	assert.NoError(t, err)

	vals, err := doc.ValidatorSet()
	assert.NoError(t, err)
	assert.Equal(t, 2, vals.Size())
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0F]
	}
	return string(out)
}
