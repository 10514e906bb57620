package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("encoderd v%s\n", version)
	fmt.Println("Rotary encoder / click button G-code event daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  encoderd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that decodes a rotary encoder and a momentary push-button on")
	fmt.Println("  GPIO pins, classifies the input into semantic events (click, double")
	fmt.Println("  click, long click, slow/fast rotation) and executes the G-code script")
	fmt.Println("  configured for each event via the Moonraker websocket API.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (optional; defaults apply without one)")
	fmt.Println()
	fmt.Println("  -encoder-pins string")
	fmt.Println("        Two comma-separated quadrature pins, e.g. \"^gpiochip0:16,^gpiochip0:20\"")
	fmt.Println("        Pin prefixes: ^ enables pull-up, ! inverts the signal")
	fmt.Println()
	fmt.Println("  -click-pin string")
	fmt.Println("        Button pin, e.g. \"^gpiochip0:21\"")
	fmt.Println()
	fmt.Println("  -moonraker-ws-url string")
	fmt.Printf("        Moonraker websocket URL (default %q)\n", defaultMoonrakerWsURL)
	fmt.Println()
	fmt.Println("  -moonraker-timeout-ms int")
	fmt.Printf("        Timeout for websocket responses in ms (default %d)\n", defaultReadTimeoutMS)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for event injection (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with a config file")
	fmt.Println("  encoderd -config /etc/encoderd.yaml")
	fmt.Println()
	fmt.Println("  # Ad-hoc: encoder only, no button")
	fmt.Println("  encoderd -encoder-pins '^gpiochip0:16,^gpiochip0:20'")
	fmt.Println()
	fmt.Println("  # Inject events without hardware (see encoder-ctl)")
	fmt.Println("  encoder-ctl turn cw 3")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires access to /dev/gpiochip* (run as root or add user to 'gpio' group)")
	fmt.Println("  - Script execution is synchronous and serialized: a slow script delays")
	fmt.Println("    every event queued behind it")
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath         = flag.String("config", "", "Path to YAML config file")
		encoderPins        = flag.String("encoder-pins", "", "Two comma-separated quadrature pins")
		clickPin           = flag.String("click-pin", "", "Button pin")
		moonrakerWsURL     = flag.String("moonraker-ws-url", "", "Moonraker websocket URL")
		moonrakerTimeoutMS = flag.Int("moonraker-timeout-ms", 0, "Timeout in milliseconds for websocket responses")
		ipcSocketPath      = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		logLevelStr        = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVersion        = flag.Bool("version", false, "Print version and exit")
		showHelp           = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Defaults, then file, then flag overrides.
	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	overrides := FlagOverrides{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "encoder-pins":
			overrides.EncoderPins = encoderPins
		case "click-pin":
			overrides.ClickPin = clickPin
		case "moonraker-ws-url":
			overrides.MoonrakerWsURL = moonrakerWsURL
		case "moonraker-timeout-ms":
			overrides.MoonrakerTimeoutMS = moonrakerTimeoutMS
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Parse script templates up front so a bad template is fatal at init.
	scripts, err := loadScriptTable(&cfg.Encoder)
	if err != nil {
		logger.Error("failed to load script templates", "error", err)
		os.Exit(1)
	}

	executor, err := NewMoonrakerClient(cfg.Moonraker.WsURL, logger, cfg.Moonraker.TimeoutMS)
	if err != nil {
		logger.Error("failed to connect to moonraker", "error", err)
		os.Exit(1)
	}
	defer executor.Close()

	reactor := NewReactor(logger)

	queue := newScriptQueue(reactor, executor, logger)
	router := newEventRouter(scripts, queue, logger)

	detector := newRateDetector(cfg.Encoder.EncoderFastRate, router.Dispatch)
	classifier := newClickClassifier(reactor,
		cfg.Encoder.LongPressDuration, cfg.Encoder.DoubleClickDuration,
		router.Dispatch)

	// Register pin groups: encoder quadrature pair, then the click button.
	pins := newPinManager()

	if cfg.Encoder.EncoderPins != "" {
		pin1, pin2, err := parseEncoderPins(cfg.Encoder.EncoderPins)
		if err != nil {
			logger.Error("invalid encoder_pins", "error", err)
			os.Exit(1)
		}
		decoder, err := newQuadratureDecoder(cfg.Encoder.EncoderStepsPerDetent,
			detector.onClockwise, detector.onCounterClockwise)
		if err != nil {
			logger.Error("invalid encoder_steps_per_detent", "error", err)
			os.Exit(1)
		}
		pins.RegisterGroup([]PinSpec{pin1, pin2}, decoder.HandleState)
	}

	if cfg.Encoder.ClickPin != "" {
		pin, err := parsePin(cfg.Encoder.ClickPin)
		if err != nil {
			logger.Error("invalid click_pin", "error", err)
			os.Exit(1)
		}
		pins.RegisterGroup([]PinSpec{pin}, func(eventtime float64, state int) {
			classifier.onButton(eventtime, state&1 != 0)
		})
	}

	// IPC actions replay synthetic input through the same classifiers.
	inject := func(action Action) error {
		switch a := action.(type) {
		case InjectTurn:
			steps := a.Steps
			if steps <= 0 {
				steps = 1
			}
			cw := a.Direction == "cw"
			for i := 0; i < steps; i++ {
				reactor.Push(0, func(eventtime float64) {
					if cw {
						detector.onClockwise(eventtime)
					} else {
						detector.onCounterClockwise(eventtime)
					}
				})
			}
			return nil

		case InjectButton:
			pressed := a.Pressed
			reactor.Push(0, func(eventtime float64) {
				classifier.onButton(eventtime, pressed)
			})
			return nil

		case InjectScript:
			tmpl := literalTemplate(a.Script)
			reactor.Push(0, func(eventtime float64) {
				queue.Enqueue(tmpl, "ipc", eventtime)
			})
			return nil

		default:
			return fmt.Errorf("unsupported action type: %T", action)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting encoderd", "version", version)
	logger.Info("listening",
		"encoder_pins", cfg.Encoder.EncoderPins,
		"click_pin", cfg.Encoder.ClickPin,
		"moonraker_ws", cfg.Moonraker.WsURL,
		"ipc", cfg.IPC.SocketPath)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reactor.Run(ctx)
	})

	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, inject, logger)
	})

	if watched := pins.Pins(); len(watched) > 0 {
		g.Go(func() error {
			return watchPins(ctx, watched, reactor, pins, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("daemon stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
