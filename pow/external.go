package pow

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// MinerConfigPath is the fixed location of the external miner's
// configuration, relative to the repository root.
const MinerConfigPath = "config/miner-cfg.json"

// MinerConfig is read once at startup and passed to every subprocess
// invocation; Binary is the executable the subprocess contract is
// delegated to.
type MinerConfig struct {
	Binary string `json:"binary"`
}

func LoadMinerConfig(repoRoot string) (MinerConfig, error) {
	var cfg MinerConfig
	data, err := ioutil.ReadFile(repoRoot + "/" + MinerConfigPath)
	if err != nil {
		return cfg, errors.Wrap(err, "reading miner config")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parsing miner config")
	}
	return cfg, nil
}

type mintRequest struct {
	Src        string `json:"src"`
	Difficulty string `json:"difficulty"`
	Timeout    int64  `json:"timeout"`
}

type mintResponse struct {
	Hash  string `json:"hash"`
	Nonce uint64 `json:"nonce"`
	Err   string `json:"err,omitempty"`
}

// ExternalMiner shells out to the subprocess described by MinerConfig,
// feeding it {src, difficulty, timeout} as JSON on stdin and expecting
// {hash, nonce} or {err} back on stdout. This is the out-of-scope "inner
// hashing worker" the spec treats as an external collaborator; the
// subprocess boundary itself is the only part owned here.
type ExternalMiner struct {
	cfg MinerConfig
}

func NewExternalMiner(cfg MinerConfig) *ExternalMiner {
	return &ExternalMiner{cfg: cfg}
}

func (m *ExternalMiner) Mint(ctx context.Context, src string, difficulty string, leading int, timeout time.Duration) ([]byte, uint64, error) {
	req := mintRequest{Src: src, Difficulty: difficulty, Timeout: timeout.Milliseconds()}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "encoding miner request")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.cfg.Binary)
	cmd.Stdin = bytes.NewReader(reqBytes)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, 0, errors.Wrap(ErrMinerTimeout, ctx.Err().Error())
		}
		return nil, 0, errors.Wrap(err, "miner subprocess failed")
	}

	var resp mintResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		return nil, 0, errors.Wrap(err, "decoding miner response")
	}
	if resp.Err != "" {
		return nil, 0, fmt.Errorf("miner error: %s", resp.Err)
	}
	hash, err := hex.DecodeString(resp.Hash)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decoding miner hash")
	}
	return hash, resp.Nonce, nil
}
