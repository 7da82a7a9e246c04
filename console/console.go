// Package console is the node's interactive operator REPL
// (SPEC_FULL.md §4.7): a liner-backed prompt loop, history persisted to
// a file under DataDir, issuing a closed set of administrative commands
// as snarker/rpcfront Requests against a running node.
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"

	"snarker-node/log"
	"snarker-node/snarker"
	"snarker-node/snarker/rpcfront"
)

// HistoryFile is the file within the data directory storing input
// scrollback.
const HistoryFile = "history"

// DefaultPrompt is the prompt line prefix.
const DefaultPrompt = "snarker> "

// Config tunes a Console's behavior.
type Config struct {
	DataDir string
	Front   *snarker.Front // the running node's RPC front
	Prompt  string
	Printer io.Writer
}

// Console is a closed-command line-editing REPL attached to a running
// node's RPC front.
type Console struct {
	front    *snarker.Front
	prompt   string
	printer  io.Writer
	histPath string
	liner    *liner.State
}

// New builds a Console, loading history from config.DataDir if present.
func New(config Config) (*Console, error) {
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	if config.Printer == nil {
		config.Printer = os.Stdout
	}
	if err := os.MkdirAll(config.DataDir, 0700); err != nil {
		return nil, err
	}

	c := &Console{
		front:    config.Front,
		prompt:   config.Prompt,
		printer:  config.Printer,
		histPath: filepath.Join(config.DataDir, HistoryFile),
		liner:    liner.NewLiner(),
	}
	c.liner.SetCtrlCAborts(true)
	if f, err := os.Open(c.histPath); err == nil {
		c.liner.ReadHistory(f)
		f.Close()
	}
	return c, nil
}

// Welcome prints a short banner.
func (c *Console) Welcome() {
	fmt.Fprintln(c.printer, "snarker-node operator console. Type 'help' for commands, 'exit' to quit.")
}

// Interactive runs the read-eval-print loop until exit or Ctrl-D.
func (c *Console) Interactive() {
	defer c.saveHistory()
	for {
		line, err := c.liner.Prompt(c.prompt)
		if err == liner.ErrPromptAborted {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Error("console: prompt error", "err", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c.liner.AppendHistory(line)
		if line == "exit" || line == "quit" {
			return
		}
		c.dispatch(line)
	}
}

func (c *Console) saveHistory() {
	f, err := os.Create(c.histPath)
	if err != nil {
		log.Warn("console: failed to persist history", "err", err)
		return
	}
	defer f.Close()
	c.liner.WriteHistory(f)
}

// dispatch parses one line and renders its result. The command set is
// intentionally small and fixed (spec's Non-goal: no scripting surface).
func (c *Console) dispatch(line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(c.printer, "commands: help, status, peers, pool, connect <address>, autocommit <on|off>, watch <count>, exit")
	case "watch":
		if len(args) != 1 {
			fmt.Fprintln(c.printer, "usage: watch <count>")
			return
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintln(c.printer, "usage: watch <count>")
			return
		}
		c.cmdWatch(n)
	case "status":
		c.cmdStatus()
	case "peers":
		c.cmdPeers()
	case "pool":
		c.cmdPool()
	case "connect":
		if len(args) != 1 {
			fmt.Fprintln(c.printer, "usage: connect <address>")
			return
		}
		c.cmdConnect(args[0])
	case "autocommit":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			fmt.Fprintln(c.printer, "usage: autocommit <on|off>")
			return
		}
		c.cmdAutoCommit(args[0] == "on")
	default:
		fmt.Fprintf(c.printer, "unknown command %q (try 'help')\n", cmd)
	}
}

func (c *Console) submit(req rpcfront.Request) rpcfront.Response {
	ch := make(chan rpcfront.Response, 1)
	c.front.Submit(req, rpcfront.ResponderFunc(func(r rpcfront.Response) { ch <- r }))
	select {
	case resp := <-ch:
		return resp
	case <-time.After(10 * time.Second):
		return rpcfront.Response{Ok: false, Error: "console: request timed out"}
	}
}

func (c *Console) cmdStatus() {
	resp := c.submit(rpcfront.Request{Kind: rpcfront.ReqGetStatus})
	if !resp.Ok || resp.Status == nil {
		fmt.Fprintln(c.printer, "error:", resp.Error)
		return
	}
	s := resp.Status
	table := tablewriter.NewWriter(c.printer)
	table.SetHeader([]string{"chain", "peers", "worker", "pool size", "auto-commit"})
	table.Append([]string{s.ChainId, strconv.Itoa(s.PeerCount), s.WorkerPhase, strconv.Itoa(s.PoolSize), strconv.FormatBool(s.AutoCommit)})
	table.Render()
}

func (c *Console) cmdPeers() {
	resp := c.submit(rpcfront.Request{Kind: rpcfront.ReqGetPeers})
	if !resp.Ok {
		fmt.Fprintln(c.printer, "error:", resp.Error)
		return
	}
	table := tablewriter.NewWriter(c.printer)
	table.SetHeader([]string{"peer", "phase"})
	for _, p := range resp.Peers {
		table.Append([]string{p.Id.String(), p.Phase})
	}
	table.Render()
}

func (c *Console) cmdPool() {
	resp := c.submit(rpcfront.Request{Kind: rpcfront.ReqGetPool})
	if !resp.Ok {
		fmt.Fprintln(c.printer, "error:", resp.Error)
		return
	}
	table := tablewriter.NewWriter(c.printer)
	table.SetHeader([]string{"job", "public key", "timestamp_ms"})
	for _, e := range resp.Pool {
		table.Append([]string{e.JobId.String(), e.PublicKey.String(), strconv.FormatInt(e.TimestampMs, 10)})
	}
	table.Render()
}

func (c *Console) cmdConnect(address string) {
	resp := c.submit(rpcfront.Request{Kind: rpcfront.ReqConnectPeer, Address: address})
	if resp.Ok {
		fmt.Fprintln(c.printer, "connected")
	} else {
		fmt.Fprintln(c.printer, "error:", resp.Error)
	}
}

// cmdWatch issues a multi-shot subscription for up to n node events and
// prints each as it arrives (spec §4.6, §6: "subscribe to events ->
// multi-shot bounded stream with declared capacity").
func (c *Console) cmdWatch(n int) {
	ch := make(chan rpcfront.Response, n)
	c.front.Submit(rpcfront.Request{Kind: rpcfront.ReqSubscribeEvents, Capacity: n}, rpcfront.ResponderFunc(func(r rpcfront.Response) { ch <- r }))
	fmt.Fprintf(c.printer, "watching for up to %d events (60s)...\n", n)
	for i := 0; i < n; i++ {
		select {
		case resp := <-ch:
			if !resp.Ok {
				fmt.Fprintln(c.printer, "error:", resp.Error)
				return
			}
			if resp.Event != nil {
				fmt.Fprintln(c.printer, describeEvent(*resp.Event))
			}
		case <-time.After(60 * time.Second):
			fmt.Fprintln(c.printer, "watch: timed out waiting for the next event")
			return
		}
	}
}

func describeEvent(ev rpcfront.EventView) string {
	switch ev.Kind {
	case rpcfront.EventWorkerPhaseChanged:
		return "worker phase -> " + ev.WorkerPhase
	case rpcfront.EventPeerConnected:
		return "peer connected: " + ev.Peer.String()
	case rpcfront.EventPeerDisconnected:
		return "peer disconnected: " + ev.Peer.String()
	default:
		return "unknown event"
	}
}

func (c *Console) cmdAutoCommit(on bool) {
	resp := c.submit(rpcfront.Request{Kind: rpcfront.ReqSetAutoCommit, AutoCommit: on})
	if resp.Ok {
		fmt.Fprintln(c.printer, "ok")
	} else {
		fmt.Fprintln(c.printer, "error:", resp.Error)
	}
}

// Stop releases the console's terminal handle.
func (c *Console) Stop() error {
	c.saveHistory()
	return c.liner.Close()
}
