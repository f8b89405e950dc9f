// Command kresourced is a small demo harness: it stands up a Resource
// Manager over a simulated MMIO window and IRQ space, carves a few
// reservations, registers a simulated controller against the
// Interrupt Dispatch Engine, fires interrupts on a timer, and prints a
// diagnostic dump on SIGINT.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	kresource "github.com/go-kresource/kresource"
	"github.com/go-kresource/kresource/internal/logging"
)

func main() {
	var (
		verbose    = flag.Bool("v", false, "verbose logging")
		irqRateStr = flag.Duration("irq-interval", 200*time.Millisecond, "simulated IRQ firing interval")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	opts := kresource.DefaultOptions()
	opts.Logger = logger

	mmio := kresource.NewManager("mmio0", opts)
	mmio.ManageRegion(0xF000_0000, 0x0010_0000)

	irqs := kresource.NewManager("irq", opts)
	irqs.ManageRegion(0, 16)

	bar, err := mmio.Reserve(0xF000_0000, 0xF00F_FFFF, 0x1000, 0x1000, 0, "nic0-bar0")
	if err != nil {
		logger.Error("failed to reserve MMIO window", "error", err)
		os.Exit(1)
	}
	bar.Activate()
	logger.Info("reserved MMIO window", "start", fmt.Sprintf("%#x", bar.Start()), "end", fmt.Sprintf("%#x", bar.End()))

	irq, err := irqs.Reserve(0, 15, 1, 1, 0, "nic0")
	if err != nil {
		logger.Error("failed to reserve IRQ line", "error", err)
		os.Exit(1)
	}
	irq.Activate()
	logger.Info("reserved IRQ line", "irq", irq.Start())

	ctrl := kresource.NewMockController()
	registry := kresource.NewRegistry(opts)
	ev := registry.Establish(uint32(irq.Start()), ctrl.Enable, ctrl.Disable)
	ev.AddHandler(&kresource.Handler{
		Name:     "nic0-isr",
		Priority: 10,
		Filter: func(ctx context.Context) kresource.FilterResult {
			if rand.Intn(4) == 0 {
				return kresource.Delegate
			}
			return kresource.Filtered
		},
		Service: func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := kresource.NewWorker(opts)
	go worker.Run(ctx)

	guard := &kresource.InterruptGuard{}
	ticker := time.NewTicker(*irqRateStr)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("simulating interrupts, press Ctrl-C to stop")
	for {
		select {
		case <-ticker.C:
			kresource.RunHandlers(context.Background(), guard, ev, worker)
		case <-sig:
			fmt.Println(registry.Dump())
			fmt.Println(mmio.Dump())
			fmt.Println(irqs.Dump())
			return
		}
	}
}
