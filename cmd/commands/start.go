package commands

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	tmcrypto "github.com/tendermint/tendermint/crypto"
	tmevents "github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"

	"slotbft/codec"
	"slotbft/config"
	"slotbft/consensus"
	"slotbft/delegate"
	"slotbft/genesis"
	"slotbft/metrics"
	"slotbft/p2p/dht"
	"slotbft/p2p/gossip"
	"slotbft/p2p/rpc"
	"slotbft/pow"
	"slotbft/privval"
	"slotbft/slotclock"
	"slotbft/store"
	"slotbft/types"
)

var rpcJSON = jsoniter.ConfigCompatibleWithStandardLibrary

func decodeJSON(data []byte, v interface{}) error {
	return rpcJSON.Unmarshal(data, v)
}

var (
	startConfigFile    string
	startGenesisFile   string
	startValidatorFile string
	startSlotLength    time.Duration
	startPowLeading    int
	startPowTimeout    time.Duration
	startExternalMiner bool
	startEnableLongId  bool
)

// StartCmd brings up a full node: it loads configuration and genesis, opens
// the persisted peer store, starts the DHT overlay and the gossip layer on
// top of it, starts the slot clock and the consensus state machine, wires
// the consensus state machine's proposal/vote events to gossip broadcast,
// runs the proposer loop for slots this node leads, and finally opens the
// peer RPC listener. It blocks until interrupted.
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a slotbft consensus node",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.NewTMLogger(log.NewSyncWriter(cmd.OutOrStdout()))

		env, err := config.Load(startConfigFile)
		if err != nil {
			return err
		}

		doc, err := genesis.LoadDoc(startGenesisFile)
		if err != nil {
			return err
		}
		vals, err := doc.ValidatorSet()
		if err != nil {
			return err
		}

		pv := privval.LoadOrGenFilePV(startValidatorFile)
		index := delegate.NewIndex(vals)

		self := dht.NewNode(env.PublicIp, uint16(env.PeerPort))
		bootstrap := make([]types.Node, 0, len(env.Peers.List))
		for _, addr := range env.Peers.List {
			host, port, err := types.SplitIPv4Port(addr)
			if err != nil {
				logger.Error("skipping malformed bootstrap peer", "addr", addr, "err", err)
				continue
			}
			bootstrap = append(bootstrap, dht.NewNode(host.String(), port))
		}

		nodeStore, err := store.NewKVStore("peerstore", env.DataDir, logger)
		if err != nil {
			return err
		}
		defer nodeStore.Close()
		go nodeStore.CompactEvery(60*time.Second, cmd.Context().Done())

		overlay := dht.NewOverlay(self, bootstrap, env.Peers.BlackList, nodeStore)
		overlay.SetLogger(logger.With("module", "dht"))

		gossipLayer := gossip.NewLayer(overlay)
		gossipLayer.SetLogger(logger.With("module", "gossip"))

		slotClock := slotclock.New(time.Unix(doc.GenesisTime, 0), startSlotLength, uint8(startPowLeading), uint32(vals.Size()), startPowTimeout)
		slotClock.SetLogger(logger.With("module", "slotclock"))

		var miner pow.Miner
		if startExternalMiner {
			cfg, err := pow.LoadMinerConfig(".")
			if err != nil {
				return err
			}
			miner = pow.NewExternalMiner(cfg)
		} else {
			miner = pow.NewLocalMiner()
		}

		env2 := codec.EnvContext{EnableLongId: startEnableLongId}
		cs := consensus.NewConsensusState(slotClock, index, miner, env2)
		cs.SetLogger(logger.With("module", "consensus"))

		subscribeToBroadcastEvents(cs, gossipLayer, logger)
		wireGossipToConsensus(cs, gossipLayer, pv, logger)

		rpcClient := rpc.NewClient(env.Magic, env.NetVersion, 10*time.Second)
		rpcServer := rpc.NewServer(env.Magic, env.NetVersion, rpc.VersionInfo{Version: env.NetVersion, Net: env.NetVersion}, overlay)
		rpcServer.SetLogger(logger.With("module", "rpc"))
		rpcServer.Handle("peers", func(params []byte, from types.Node) (interface{}, error) {
			return overlay.HealthyNodes(), nil
		})

		go peerExchangeLoop(cmd.Context(), rpcClient, overlay, logger)
		if env.AcquireIp {
			go acquireIPLoop(cmd.Context(), rpcClient, overlay, logger)
		}
		go proposerLoop(cmd.Context(), cs, index, pv, slotClock, self, logger)

		reporter := metrics.NewReporter()
		if err := reporter.Register("consensus", cs.Metrics()); err != nil {
			logger.Error("registering consensus metrics failed", "err", err)
		}
		if err := reporter.Register("dht", overlay.Metrics()); err != nil {
			logger.Error("registering dht metrics failed", "err", err)
		}

		if err := overlay.Start(); err != nil {
			return err
		}
		defer overlay.Stop() //nolint:errcheck

		if err := slotClock.Start(); err != nil {
			return err
		}
		defer slotClock.Stop() //nolint:errcheck

		if err := cs.Start(); err != nil {
			return err
		}
		defer cs.Stop() //nolint:errcheck

		peerRPCAddr := fmt.Sprintf(":%d", env.PeerRPCPort())
		go func() {
			if err := rpcServer.ListenAndServe(peerRPCAddr); err != nil {
				logger.Error("peer rpc listener stopped", "err", err)
			}
		}()
		defer rpcServer.Close() //nolint:errcheck

		dhtAddr := fmt.Sprintf(":%d", env.PeerPort)
		if err := overlay.Listen(dhtAddr); err != nil {
			logger.Error("dht listener stopped", "err", err)
		}

		<-cmd.Context().Done()
		return nil
	},
}

// subscribeToBroadcastEvents listens for the consensus state machine's
// EventNewProposal/EventNewVote and republishes each over gossip. It
// deliberately lives here, outside both packages, so the consensus state
// machine never holds a reference into gossip or the DHT beneath it.
func subscribeToBroadcastEvents(cs *consensus.ConsensusState, layer *gossip.Layer, logger log.Logger) {
	const scriber = "slotbft-start"

	cs.EventSwitch().AddListenerForEvent(scriber, consensus.EventNewProposal, func(data tmevents.EventData) {
		propose, ok := data.(*types.Proposal)
		if !ok {
			return
		}
		if err := publishJSON(layer, "propose", propose, 1); err != nil {
			logger.Error("broadcasting proposal failed", "err", err)
		}
	})

	cs.EventSwitch().AddListenerForEvent(scriber, consensus.EventNewVote, func(data tmevents.EventData) {
		vote, ok := data.(*types.Vote)
		if !ok {
			return
		}
		if err := publishJSON(layer, "votes", vote, 1); err != nil {
			logger.Error("broadcasting vote failed", "err", err)
		}
	})
}

// wireGossipToConsensus subscribes the gossip layer's "propose" and "votes"
// topics to the consensus state machine's accept/aggregate operations. A
// propose that survives AcceptPropose is installed as the pending block and
// voted on with this node's own key; the resulting vote reaches the network
// through subscribeToBroadcastEvents, not through a direct call here.
func wireGossipToConsensus(cs *consensus.ConsensusState, layer *gossip.Layer, pv *privval.FilePV, logger log.Logger) {
	layer.Subscribe("propose", func(msg gossip.Message, from types.Node) {
		var propose types.Proposal
		if err := decodeJSON(msg.Payload, &propose); err != nil {
			logger.Debug("dropping malformed propose message", "err", err)
			return
		}
		if err := cs.AcceptPropose(&propose); err != nil {
			logger.Debug("rejected remote propose", "err", err)
			return
		}

		block := &types.BlockHeader{
			Height:             propose.Height,
			Id:                 propose.Id,
			Timestamp:          propose.Timestamp,
			GeneratorPublicKey: propose.GeneratorPublicKey,
		}
		voteOwnBlock(cs, pv, block, logger)
	})

	layer.Subscribe("votes", func(msg gossip.Message, from types.Node) {
		var vote types.Vote
		if err := decodeJSON(msg.Payload, &vote); err != nil {
			logger.Debug("dropping malformed votes message", "err", err)
			return
		}
		if _, err := cs.AddPendingVotes(&vote); err != nil {
			logger.Debug("rejected remote votes", "err", err)
		}
	})
}

// voteOwnBlock installs block as pending and folds in this node's own
// signature over it, shared by both the propose-accept path and the
// proposer loop's self-proposed path.
func voteOwnBlock(cs *consensus.ConsensusState, pv *privval.FilePV, block *types.BlockHeader, logger log.Logger) {
	cs.SetPendingBlock(block)

	vote, err := cs.CreateVotes([]tmcrypto.PrivKey{pv.PrivKey()}, block)
	if err != nil {
		logger.Error("signing vote failed", "err", err)
		return
	}
	if _, err := cs.AddPendingVotes(vote); err != nil {
		logger.Debug("accumulating own vote failed", "err", err)
	}
}

func publishJSON(layer *gossip.Layer, topic string, v interface{}, recursive uint8) error {
	payload, err := rpcJSON.Marshal(v)
	if err != nil {
		return err
	}
	layer.Publish(topic, payload, recursive)
	return nil
}

// proposerLoop mints and broadcasts a proposal for every slot this node is
// elected proposer for, then self-votes it, exactly mirroring the path a
// remote proposal takes once accepted.
func proposerLoop(ctx context.Context, cs *consensus.ConsensusState, idx delegate.Index, pv *privval.FilePV, slotClock slotclock.SlotClock, self types.Node, logger log.Logger) {
	ownPub := pv.Key.PubKey
	for {
		select {
		case <-ctx.Done():
			return
		case slot := <-slotClock.Chan():
			proposer, err := idx.ProposerFor(slot)
			if err != nil {
				logger.Debug("no proposer for slot", "slot", slot, "err", err)
				continue
			}
			if !proposer.Equals(ownPub) {
				continue
			}

			block := &types.BlockHeader{
				Height:             types.Height(int64(slot)),
				Id:                 types.BlockId(strconv.FormatInt(int64(slot), 10)),
				Timestamp:          types.SlotTime(time.Now().Unix()),
				GeneratorPublicKey: ownPub,
			}

			mintCtx, cancel := context.WithTimeout(ctx, slotClock.PowTimeout())
			propose, err := cs.CreatePropose(mintCtx, pv.PrivKey(), block, self.Addr())
			cancel()
			if err != nil {
				logger.Error("minting proposal failed", "slot", slot, "err", err)
				continue
			}

			if err := cs.AcceptPropose(propose); err != nil {
				logger.Error("self-minted proposal failed its own verification", "slot", slot, "err", err)
				continue
			}
			voteOwnBlock(cs, pv, block, logger)
		}
	}
}

// peerExchangeLoop periodically asks one random healthy peer for its own
// peer list and folds the results into the local overlay, the same kind of
// bootstrap-by-gossip discovery the DHT's reconnect/refresh loops assume is
// happening alongside them.
func peerExchangeLoop(ctx context.Context, client *rpc.Client, overlay *dht.Overlay, logger log.Logger) {
	ticker := time.NewTicker(45 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthy := overlay.HealthyNodes()
			if len(healthy) == 0 {
				continue
			}
			var discovered []types.Node
			if err := client.RandomRequest(ctx, "peers", nil, healthy, &discovered); err != nil {
				logger.Debug("peer exchange request failed", "err", err)
				continue
			}
			for _, n := range discovered {
				overlay.Add(n)
			}
		}
	}
}

// acquireIPLoop asks a random bootstrap peer what IP it observed this node
// connecting from, and folds the answer into the overlay's advertised
// address when it disagrees with the current one. Gated on the config's
// acquireip flag: nodes with a known-good publicIp never run it.
func acquireIPLoop(ctx context.Context, client *rpc.Client, overlay *dht.Overlay, logger log.Logger) {
	discover := func() {
		bootstrap := overlay.BootstrapSet()
		if len(bootstrap) == 0 {
			return
		}
		peer := bootstrap[rand.Intn(len(bootstrap))]

		reqCtx, cancel := context.WithTimeout(ctx, rpc.RandomRequestCap)
		ip, err := client.P2PHelper(reqCtx, peer)
		cancel()
		if err != nil {
			logger.Debug("p2p helper request failed", "err", err)
			return
		}
		overlay.UpdateSelfHost(ip)
	}

	discover()
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			discover()
		}
	}
}

func init() {
	StartCmd.Flags().StringVar(&startConfigFile, "config", "./config/config.toml", "path to the node config file")
	StartCmd.Flags().StringVar(&startGenesisFile, "genesis-file", "./config/genesis.json", "path to the genesis document")
	StartCmd.Flags().StringVar(&startValidatorFile, "validator-key-file", "./config/priv_validator_key.json", "path to this node's delegate key")
	StartCmd.Flags().DurationVar(&startSlotLength, "slot-length", 3*time.Second, "duration of one consensus slot")
	StartCmd.Flags().IntVar(&startPowLeading, "pow-leading", 4, "number of leading bytes the pow mask/difficulty operate over")
	StartCmd.Flags().DurationVar(&startPowTimeout, "pow-timeout", 2*time.Second, "deadline for minting a proposal's pow nonce")
	StartCmd.Flags().BoolVar(&startExternalMiner, "external-miner", false, "shell out to the external miner subprocess instead of mining in-process")
	StartCmd.Flags().BoolVar(&startEnableLongId, "enable-long-id", false, "hash block ids as raw utf-8 bytes instead of as a decimal big integer")
}
