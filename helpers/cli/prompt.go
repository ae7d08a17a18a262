package cli

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/mattn/go-isatty"
)

type ExecFunc func(ctx context.Context, line string)

func IsInteractive() bool { return isatty.IsTerminal(os.Stdin.Fd()) }

// Runner serializes line execution with exit hook.
// Exit cancels context of running line, waits for it, then runs onExit once.
type Runner struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	exec   ExecFunc
	onExit func()
	once   sync.Once
}

func NewRunner(ctx context.Context, exec ExecFunc, onExit func()) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{ctx: ctx, cancel: cancel, exec: exec, onExit: onExit}
}

func (self *Runner) Exec(line string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.ctx.Err() != nil {
		return
	}
	self.exec(self.ctx, line)
}

func (self *Runner) Exit() {
	self.once.Do(func() {
		self.cancel()
		self.mu.Lock()
		defer self.mu.Unlock()
		self.onExit()
	})
}

// MainLoop runs exec for every input line, interactive prompt on TTY or script from stdin.
// onExit runs once on signal or end of input, never concurrently with exec.
func MainLoop(ctx context.Context, tag string, exec ExecFunc, complete func(d prompt.Document) []prompt.Suggest, onExit func()) {
	r := NewRunner(ctx, exec, onExit)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		<-signalCh
		r.Exit()
		os.Exit(1)
	}()

	if IsInteractive() {
		prompt.New(r.Exec, complete,
			prompt.OptionPrefix(tag+"> "),
			prompt.OptionTitle(tag),
		).Run()
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			r.Exec(line)
		}
	}
	r.Exit()
}
