// Command snarkerd runs a single snarker-node reactor: the event queue,
// the external worker supervisor, the commitment pool, and (if
// configured) the HTTP RPC front and operator console.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "gopkg.in/urfave/cli.v1"

	"snarker-node/common"
	"snarker-node/common/mclock"
	"snarker-node/console"
	"snarker-node/event"
	"snarker-node/log"
	"snarker-node/metrics"
	"snarker-node/rpc"
	"snarker-node/snarker"
	"snarker-node/snarker/snarkpool"
	"snarker-node/snarker/verifypool"
)

var (
	chainIdFlag    = cli.StringFlag{Name: "chainid", Usage: "chain identifier this node serves"}
	portFlag       = cli.IntFlag{Name: "port", Usage: "listening port for peer connections"}
	maxPeersFlag   = cli.IntFlag{Name: "maxpeers", Usage: "maximum simultaneous peer connections"}
	workerPathFlag = cli.StringFlag{Name: "workerpath", Usage: "path to the external snark-worker binary"}
	autoCommitFlag = cli.BoolFlag{Name: "autocommit", Usage: "automatically commit and gossip completed work"}
	metricsURLFlag = cli.StringFlag{Name: "metricsurl", Usage: "InfluxDB endpoint for the stats reporter"}
	publicKeyFlag  = cli.StringFlag{Name: "publickey", Usage: "hex-encoded compressed secp256k1 public key"}
	httpAddrFlag   = cli.StringFlag{Name: "httpaddr", Value: "127.0.0.1:8302", Usage: "address for the RPC/debug HTTP server"}
	consoleFlag    = cli.BoolFlag{Name: "console", Usage: "start the interactive operator console"}
	dataDirFlag    = cli.StringFlag{Name: "datadir", Value: "./snarkerd-data", Usage: "directory for console history and local state"}
)

func main() {
	app := cli.NewApp()
	app.Name = "snarkerd"
	app.Usage = "proof-of-stake snarker node"
	app.Flags = []cli.Flag{
		configFileFlag, chainIdFlag, portFlag, maxPeersFlag, workerPathFlag,
		autoCommitFlag, metricsURLFlag, publicKeyFlag, httpAddrFlag, consoleFlag, dataDirFlag,
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fatalf("%v", err)
	}
}

// run assembles and starts every node component, in this order: state,
// reactor, worker supervisor, verification pool, dispatcher, RPC front,
// stats reporter, HTTP transport, and finally (optionally) the operator
// console.
func run(ctx *cli.Context) error {
	cfg := makeConfig(ctx)

	clock := mclock.System{}
	state := snarker.NewState(cfg, clock)

	reactor := snarker.NewReactor(nil)
	worker := reactor.BindWorker(cfg.WorkerPath)

	vp := verifypool.New()
	defer vp.Stop()
	verify := func(c snarkpool.Commitment) bool {
		result := make(chan bool, 1)
		vp.Verify(c, func(ok bool) { result <- ok })
		return <-result
	}

	transport := &logOnlyTransport{}
	dispatcher := snarker.NewDispatcher(state, worker, transport, verify)
	reactor.Dispatcher = dispatcher

	phaseCh := make(chan snarker.WorkerPhaseChanged, 4)
	phaseSub := event.Subscribe(dispatcher.WorkerPhaseFeed, phaseCh)
	go func() {
		for {
			select {
			case ev := <-phaseCh:
				log.Info("worker phase changed", "phase", ev.Phase)
			case <-phaseSub.Err():
				return
			}
		}
	}()
	defer phaseSub.Unsubscribe()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reactor.Run(rootCtx)

	front := snarker.NewFront(reactor)
	defer front.Close()

	// The external worker lifecycle starts here, through the queue like
	// every other producer: Dispatch itself is not safe to call from this
	// goroutine, which races the reactor's own (spec §5).
	startup := reactor.NewProducer()
	startup.Send(snarker.ExternalWorkerStart{})
	startup.Close()

	reporter := metrics.New(cfg.MetricsURL, cfg.ChainId, func() metrics.Snapshot {
		return metrics.Snapshot{
			PeerCount:   len(state.Peers),
			PoolSize:    state.Pool.Len(),
			WorkerPhase: state.Worker.Phase.String(),
		}
	}, state)
	go reporter.Run()
	defer reporter.Stop()

	httpAddr := ctx.GlobalString(httpAddrFlag.Name)
	if httpAddr == "" {
		httpAddr = httpAddrFlag.Value
	}
	server := rpc.New(httpAddr, front)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Error("rpc: http server exited", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	if ctx.GlobalBool(consoleFlag.Name) {
		c, err := console.New(console.Config{DataDir: ctx.GlobalString(dataDirFlag.Name), Front: front})
		if err != nil {
			return err
		}
		c.Welcome()
		done := make(chan struct{})
		go func() { c.Interactive(); close(done) }()
		select {
		case <-sig:
		case <-done:
		}
		c.Stop()
		return nil
	}

	<-sig
	log.Info("snarkerd: shutting down")
	return nil
}

// logOnlyTransport stands in for the devp2p/libp2p network layer, which
// is an opaque collaborator this module only dials and sends through
// (spec §9 design note). It only logs, so a node run with this
// transport talks to no peers but still exercises every other
// component end to end; a real deployment supplies a Transport backed
// by the wire framing layer instead.
type logOnlyTransport struct{}

func (logOnlyTransport) Dial(address string) {
	log.Info("transport: dial (no-op)", "address", address)
}

func (logOnlyTransport) SendGetNext(peer common.PeerId, channel snarker.ChannelKind, limit uint8) {
	log.Debug("transport: send GetNext (no-op)", "peer", peer, "channel", channel, "limit", limit)
}

func (logOnlyTransport) SendWillSend(peer common.PeerId, channel snarker.ChannelKind, count uint8) {
	log.Debug("transport: send WillSend (no-op)", "peer", peer, "channel", channel, "count", count)
}

func (logOnlyTransport) SendCommitment(peer common.PeerId, channel snarker.ChannelKind, c snarkpool.Commitment) {
	log.Debug("transport: send commitment (no-op)", "peer", peer, "channel", channel, "job", c.JobId)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func decodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		fatalf("invalid hex value: %v", err)
	}
	return b
}
