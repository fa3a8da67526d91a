package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/mdp/qrterminal/v3"

	"github.com/noder-app/noder/pkg/bus"
	"github.com/noder-app/noder/pkg/config"
	"github.com/noder-app/noder/pkg/providers"
	"github.com/noder-app/noder/pkg/sanitize"
	"github.com/noder-app/noder/pkg/scheduler"
	"github.com/noder-app/noder/pkg/storage"
	"github.com/noder-app/noder/pkg/whatsapp"
)

type consoleDeps struct {
	cfg        *config.Config
	monitor    *whatsapp.Monitor
	dispatcher *whatsapp.Dispatcher
	registry   *whatsapp.Registry
	sched      *scheduler.Scheduler
	store      storage.Storage
	events     *bus.EventBus
}

const consoleHelp = `Commands:
  status                       show WhatsApp connection state
  init                         ask the service to start a session
  qr                           render the pairing QR code in the terminal
  send <number> <message...>   send a text message
  listen <id> <numbers>        watch for replies (numbers comma-separated)
  unlisten <id>                stop a listener
  listeners                    list active listeners
  jobs                         list scheduled messages
  workflows                    list saved workflows
  models                       list models from the configured text provider
  version                      print the noder version
  help                         show this help
  exit                         quit`

// runConsole drives the interactive prompt until the context is cancelled
// or the user exits.
func runConsole(ctx context.Context, deps consoleDeps) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "noder> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".noder_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start console: %v\n", err)
		<-ctx.Done()
		return
	}
	defer rl.Close()

	// Mirror incoming messages onto the console as they arrive
	sub := deps.events.Subscribe()
	defer deps.events.Unsubscribe(sub)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if ev.Type == bus.EventMessageReceived && ev.Message != nil {
					fmt.Printf("\n[message] %s: %s\n", sanitize.MaskPhoneNumber(ev.Message.From), ev.Message.Content)
					rl.Refresh()
				}
			}
		}
	}()

	fmt.Println("noder console. Type 'help' for commands.")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}

		args := strings.Fields(strings.TrimSpace(line))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			return
		case "help":
			fmt.Println(consoleHelp)
		case "version":
			fmt.Println("noder", version)
		case "status":
			doStatus(deps)
		case "init":
			if err := deps.monitor.Init(); err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("initialization requested, watch 'status' and 'qr'")
			}
		case "qr":
			doQR(deps)
		case "send":
			doSend(ctx, deps, args[1:])
		case "listen":
			doListen(ctx, deps, args[1:])
		case "unlisten":
			if len(args) != 2 {
				fmt.Println("usage: unlisten <id>")
				continue
			}
			if err := deps.registry.Unregister(args[1]); err != nil {
				fmt.Println("error:", err)
			}
		case "listeners":
			ids := deps.registry.ActiveIDs()
			if len(ids) == 0 {
				fmt.Println("no active listeners")
				continue
			}
			for _, id := range ids {
				fmt.Println(" ", id)
			}
		case "jobs":
			doJobs(deps)
		case "workflows":
			doWorkflows(ctx, deps)
		case "models":
			doModels(ctx, deps)
		default:
			fmt.Printf("unknown command %q, try 'help'\n", args[0])
		}
	}
}

func doStatus(deps consoleDeps) {
	status, err := deps.monitor.ReadStatus()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("status: %s (authenticated=%v ready=%v initializing=%v)\n",
		status.Status, status.IsAuthenticated, status.IsClientReady, status.IsInitializing)
}

func doQR(deps consoleDeps) {
	qr, err := deps.monitor.ReadQR()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if qr.Code == "" {
		fmt.Println("no QR code available, run 'init' first")
		return
	}
	qrterminal.GenerateHalfBlock(qr.Code, qrterminal.L, os.Stdout)
	fmt.Println("scan with WhatsApp on your phone")
}

func doSend(ctx context.Context, deps consoleDeps, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: send <number> <message...>")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := deps.dispatcher.Send(sendCtx, args[0], strings.Join(args[1:], " ")); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("sent to", sanitize.MaskPhoneNumber(args[0]))
}

func doListen(ctx context.Context, deps consoleDeps, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: listen <id> <numbers> (numbers comma-separated)")
		return
	}

	numbers := strings.Split(args[1], ",")
	if err := deps.registry.Register(ctx, args[0], numbers, ""); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("listening as %q for %d number(s)\n", args[0], len(numbers))
}

func doJobs(deps consoleDeps) {
	jobs := deps.sched.ListJobs(true)
	if len(jobs) == 0 {
		fmt.Println("no scheduled messages")
		return
	}
	for _, job := range jobs {
		state := "enabled"
		if !job.Enabled {
			state = "disabled"
		}
		next := "unscheduled"
		if job.NextRunAt != nil {
			next = job.NextRunAt.Format(time.RFC3339)
		}
		fmt.Printf("  %s  %-20s %s (%s, next %s)\n", job.ID, job.Name, job.Expr, state, next)
	}
}

func doWorkflows(ctx context.Context, deps consoleDeps) {
	list, err := deps.store.Workflows().List(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("no workflows")
		return
	}
	for _, wf := range list {
		fmt.Printf("  %s  %-30s updated %s\n", wf.ID, wf.Name, wf.UpdatedAt.Format(time.RFC3339))
	}
}

func doModels(ctx context.Context, deps consoleDeps) {
	listCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	models, err := providers.NewDynamicProvider(deps.cfg).ListModels(listCtx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, m := range models {
		fmt.Println(" ", m)
	}
}
