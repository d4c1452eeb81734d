package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeTempConfig(t *testing.T, body string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	assert.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `magic = "abc123"`+"\n")
	env, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 26700, env.PeerPort)
	assert.Equal(t, "testnet", env.NetVersion)
	assert.Equal(t, "./data", env.DataDir)
}

func TestLoadRejectsMissingMagic(t *testing.T) {
	path := writeTempConfig(t, `peerPort = 9000`+"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidNetVersion(t *testing.T) {
	path := writeTempConfig(t, "magic = \"abc\"\nnetVersion = \"unknown\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadToleratesMissingFileButStillValidates(t *testing.T) {
	// A missing config file is not itself fatal (ReadInConfig's not-found
	// error is swallowed), but the resulting env still has no magic set,
	// so Validate rejects it exactly like a present-but-incomplete file.
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestPeerRPCPortIsOneBelowPeerPort(t *testing.T) {
	env := &Env{PeerPort: 9000}
	assert.Equal(t, 8999, env.PeerRPCPort())
}

func TestLoadParsesPeerLists(t *testing.T) {
	path := writeTempConfig(t, `
magic = "abc"
[peers]
list = ["1.2.3.4:9000"]
blackList = ["5.6.7.8"]
`)
	env, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4:9000"}, env.Peers.List)
	assert.Equal(t, []string{"5.6.7.8"}, env.Peers.BlackList)
}
