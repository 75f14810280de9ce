// Package main provides the CLI entrypoint for signtutor.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/signtutor/internal/backend"
	"github.com/verte-zerg/signtutor/internal/capture"
	"github.com/verte-zerg/signtutor/internal/catalog"
	"github.com/verte-zerg/signtutor/internal/config"
	"github.com/verte-zerg/signtutor/internal/detect"
	"github.com/verte-zerg/signtutor/internal/logging"
	"github.com/verte-zerg/signtutor/internal/model"
	"github.com/verte-zerg/signtutor/internal/scheduler"
	"github.com/verte-zerg/signtutor/internal/session"
	"github.com/verte-zerg/signtutor/internal/simulate"
	"github.com/verte-zerg/signtutor/internal/stats"
	"github.com/verte-zerg/signtutor/internal/statsui"
	"github.com/verte-zerg/signtutor/internal/store"
	"github.com/verte-zerg/signtutor/internal/tui"
)

const (
	defaultModule        = "alphabets"
	customModule         = "custom"
	defaultInterval      = 500 * time.Millisecond
	defaultDisplay       = 2 * time.Second
	defaultSimHands      = 0.8
	defaultSimCorrect    = 0.5
	defaultSimLatency    = 300 * time.Millisecond
	defaultWidth         = 640
	defaultHeight        = 480
	defaultQuality       = 80
	defaultFFmpeg        = "ffmpeg"
	defaultTimeout       = 10 * time.Second
	defaultDetectURL     = "http://localhost:5000/api/detect"
	defaultStatsWindow   = 5
	minInterval          = 100 * time.Millisecond
	detectEndpointSuffix = "/api/detect"
)

var (
	practiceModule      string
	practiceTargetsFile string
	practiceInterval    time.Duration
	practiceDisplay     time.Duration
	practiceSimulate    bool
	practiceSimHands    float64
	practiceSimCorrect  float64
	practiceSimLatency  time.Duration
	practiceOverlay     bool

	cameraDevice      string
	cameraInputFormat string
	cameraWidth       int
	cameraHeight      int
	cameraQuality     int
	cameraFFmpeg      string
	cameraImageDir    string

	serviceAPIURL    string
	serviceDetectURL string
	serviceToken     string
	serviceUserID    string
	serviceTimeout   time.Duration

	logLevel string

	modulesTargetsFile string

	statsModule string
	statsSince  string
	statsLast   int
	statsWindow int
	statsPlain  bool

	checkTarget string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "signtutor",
		Short:         "Terminal sign language tutor",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&practiceModule, "module", defaultModule, "module to practice (alphabets, numbers, words)")
	flags.StringVar(&practiceTargetsFile, "targets-file", "", "practice targets from a file (one label|hint per line)")
	flags.DurationVar(&practiceInterval, "interval", defaultInterval, "detection interval while the camera runs")
	flags.DurationVar(&practiceDisplay, "display", defaultDisplay, "how long a verdict stays on screen")
	flags.BoolVar(&practiceSimulate, "simulate", false, "use a simulated detector instead of the service")
	flags.Float64Var(&practiceSimHands, "sim-hands", defaultSimHands, "simulated probability of detecting hands (0-1)")
	flags.Float64Var(&practiceSimCorrect, "sim-correct", defaultSimCorrect, "simulated probability of a correct sign (0-1)")
	flags.DurationVar(&practiceSimLatency, "sim-latency", defaultSimLatency, "simulated detection latency")
	flags.BoolVar(&practiceOverlay, "overlay", false, "draw detected hand landmarks")

	flags.StringVar(&cameraDevice, "device", "", "camera device (platform default when empty)")
	flags.StringVar(&cameraInputFormat, "input-format", "", "ffmpeg input format (platform default when empty)")
	flags.IntVar(&cameraWidth, "width", defaultWidth, "capture width")
	flags.IntVar(&cameraHeight, "height", defaultHeight, "capture height")
	flags.IntVar(&cameraQuality, "quality", defaultQuality, "JPEG quality (1-100)")
	flags.StringVar(&cameraFFmpeg, "ffmpeg", defaultFFmpeg, "ffmpeg executable")
	flags.StringVar(&cameraImageDir, "image-dir", "", "replay still images from a directory instead of a camera")

	flags.StringVar(&serviceAPIURL, "api-url", "", "backend API base URL (local store when empty)")
	flags.StringVar(&serviceDetectURL, "detect-url", "", "detection endpoint URL")
	flags.StringVar(&serviceToken, "token", "", "bearer token for the backend and detection service")
	flags.StringVar(&serviceUserID, "user-id", "", "user id sent to the backend")
	flags.DurationVar(&serviceTimeout, "timeout", defaultTimeout, "HTTP request timeout")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newModulesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newCheckCmd())

	return rootCmd
}

type practiceSettings struct {
	practice model.Config
	camera   model.CameraConfig
	service  model.ServiceConfig
	level    slog.Level
}

func loadSettings(cmd *cobra.Command) (practiceSettings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return practiceSettings{}, fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.LoadEnv()
	if err != nil {
		return practiceSettings{}, fmt.Errorf("failed to load environment: %w", err)
	}

	p := fileCfg.Practice
	applyStringConfig(cmd, "module", &practiceModule, p.Module)
	applyStringConfig(cmd, "targets-file", &practiceTargetsFile, p.TargetsFile)
	if err := applyDurationConfig(cmd, "interval", &practiceInterval, p.Interval); err != nil {
		return practiceSettings{}, err
	}
	if err := applyDurationConfig(cmd, "display", &practiceDisplay, p.Display); err != nil {
		return practiceSettings{}, err
	}
	applyBoolConfig(cmd, "simulate", &practiceSimulate, p.Simulate)
	applyFloatConfig(cmd, "sim-hands", &practiceSimHands, p.SimHandsPct)
	applyFloatConfig(cmd, "sim-correct", &practiceSimCorrect, p.SimCorrectPct)
	if err := applyDurationConfig(cmd, "sim-latency", &practiceSimLatency, p.SimLatency); err != nil {
		return practiceSettings{}, err
	}
	applyBoolConfig(cmd, "overlay", &practiceOverlay, p.Overlay)

	c := fileCfg.Camera
	applyStringConfig(cmd, "device", &cameraDevice, c.Device)
	applyStringConfig(cmd, "input-format", &cameraInputFormat, c.InputFormat)
	applyIntConfig(cmd, "width", &cameraWidth, c.Width)
	applyIntConfig(cmd, "height", &cameraHeight, c.Height)
	applyIntConfig(cmd, "quality", &cameraQuality, c.Quality)
	applyStringConfig(cmd, "ffmpeg", &cameraFFmpeg, c.FFmpeg)
	applyStringConfig(cmd, "image-dir", &cameraImageDir, c.ImageDir)

	s := fileCfg.Service
	applyStringConfig(cmd, "api-url", &serviceAPIURL, s.APIURL)
	applyStringConfig(cmd, "detect-url", &serviceDetectURL, s.DetectURL)
	applyStringConfig(cmd, "token", &serviceToken, s.Token)
	applyStringConfig(cmd, "user-id", &serviceUserID, s.UserID)
	if err := applyDurationConfig(cmd, "timeout", &serviceTimeout, s.Timeout); err != nil {
		return practiceSettings{}, err
	}

	applyEnvString(cmd, "api-url", &serviceAPIURL, envCfg.APIURL)
	applyEnvString(cmd, "detect-url", &serviceDetectURL, envCfg.DetectURL)
	applyEnvString(cmd, "token", &serviceToken, envCfg.Token)
	applyEnvString(cmd, "user-id", &serviceUserID, envCfg.UserID)
	applyEnvString(cmd, "log-level", &logLevel, envCfg.LogLevel)

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return practiceSettings{}, fmt.Errorf("--log-level: %w", err)
	}

	moduleID := practiceModule
	if practiceTargetsFile != "" && !cmd.Flags().Changed("module") && p.Module == nil {
		moduleID = customModule
	}

	settings := practiceSettings{
		practice: model.Config{
			Module:          moduleID,
			TargetsFile:     practiceTargetsFile,
			Interval:        practiceInterval,
			DisplayDuration: practiceDisplay,
			Simulate:        practiceSimulate,
			SimHandsPct:     practiceSimHands,
			SimCorrectPct:   practiceSimCorrect,
			SimLatency:      practiceSimLatency,
			Overlay:         practiceOverlay,
		},
		camera: model.CameraConfig{
			Device:      cameraDevice,
			InputFormat: cameraInputFormat,
			Width:       cameraWidth,
			Height:      cameraHeight,
			Quality:     cameraQuality,
			FFmpegPath:  cameraFFmpeg,
			ImageDir:    cameraImageDir,
		},
		service: model.ServiceConfig{
			APIURL:    strings.TrimRight(serviceAPIURL, "/"),
			DetectURL: resolveDetectURL(serviceDetectURL, serviceAPIURL),
			Token:     serviceToken,
			UserID:    serviceUserID,
			Timeout:   serviceTimeout,
		},
		level: level,
	}
	if err := validateConfig(settings.practice, settings.camera, settings.service); err != nil {
		return practiceSettings{}, err
	}
	return settings, nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.OpenFile(config.DefaultLogPath(), settings.level)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			// Best-effort close for the log file.
			_ = cerr
		}
	}()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, targets, err := buildServices(settings, st, logger)
	if err != nil {
		return err
	}
	detector, err := buildDetector(ctx, settings, targets)
	if err != nil {
		return err
	}

	source := capture.New(settings.camera)
	if ff, ok := source.(*capture.FFmpegSource); ok {
		ff.SetLogger(logger)
	}

	coord := session.NewCoordinator(service, targets, source, detector, session.Options{
		Interval: settings.practice.Interval,
		Display:  settings.practice.DisplayDuration,
		Logger:   logger,
	})
	if err := coord.Start(ctx, settings.practice.Module); err != nil {
		return err
	}
	defer func() {
		if eerr := coord.EndSession(context.Background()); eerr != nil {
			logger.Warn("failed to end session", "err", eerr)
		}
	}()

	title := catalog.Title(settings.practice.Module)
	if settings.practice.TargetsFile != "" {
		title = filepath.Base(settings.practice.TargetsFile)
	}
	program := tea.NewProgram(tui.NewModel(ctx, coord, title, settings.practice.Overlay), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		program.Quit()
	}()
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// buildServices picks the session service and catalog: the backend API
// mirrored into the local store when an API URL is set, the store alone otherwise.
func buildServices(settings practiceSettings, st *store.Store, logger *slog.Logger) (session.SessionService, session.Catalog, error) {
	var targets session.Catalog
	if settings.practice.TargetsFile != "" {
		loaded, err := catalog.LoadTargets(settings.practice.TargetsFile, settings.practice.Module)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load targets file: %w", err)
		}
		local, err := catalog.Parse("")
		if err != nil {
			return nil, nil, err
		}
		local.Add(catalog.Module{ID: settings.practice.Module, Title: filepath.Base(settings.practice.TargetsFile), Targets: loaded})
		targets = local
	}

	if settings.service.APIURL == "" {
		if targets == nil {
			builtin, err := catalog.Builtin()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to load modules: %w", err)
			}
			targets = builtin
		}
		return st, targets, nil
	}

	api := backend.NewClient(settings.service.APIURL, settings.service.Token, settings.service.UserID, settings.service.Timeout)
	if targets == nil {
		targets = backend.NewCachedCatalog(api, st, logger)
	}
	return backend.NewMirror(api, st, logger), targets, nil
}

func buildDetector(ctx context.Context, settings practiceSettings, targets session.Catalog) (scheduler.Detector, error) {
	if !settings.practice.Simulate {
		return detect.NewClient(settings.service.DetectURL, settings.service.Token, settings.service.Timeout), nil
	}
	list, err := targets.GetTargets(ctx, settings.practice.Module)
	if err != nil {
		return nil, &session.SessionStartError{ModuleID: settings.practice.Module, Err: err}
	}
	labels := make([]string, len(list))
	for i, t := range list {
		labels[i] = t.Label
	}
	return simulate.New(simulate.Options{
		HandsPct:   settings.practice.SimHandsPct,
		CorrectPct: settings.practice.SimCorrectPct,
		Latency:    settings.practice.SimLatency,
		Labels:     labels,
	}), nil
}

func resolveDetectURL(detectURL, apiURL string) string {
	if detectURL != "" {
		return detectURL
	}
	if apiURL != "" {
		return strings.TrimRight(apiURL, "/") + detectEndpointSuffix
	}
	return defaultDetectURL
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newModulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List practice modules",
		Args:  cobra.NoArgs,
		RunE:  runModulesCmd,
	}
	cmd.Flags().StringVar(&modulesTargetsFile, "targets-file", "", "also list a custom targets file")
	return cmd
}

func runModulesCmd(cmd *cobra.Command, _ []string) error {
	local, err := catalog.Builtin()
	if err != nil {
		return fmt.Errorf("failed to load modules: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, mod := range local.Modules() {
		if _, err := fmt.Fprintf(out, "%-10s %-14s %d signs\n", mod.ID, mod.Title, len(mod.Targets)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if modulesTargetsFile == "" {
		return nil
	}
	targets, err := catalog.LoadTargets(modulesTargetsFile, customModule)
	if err != nil {
		return fmt.Errorf("failed to load targets file: %w", err)
	}
	if _, err := fmt.Fprintf(out, "%-10s %-14s %d signs\n", customModule, filepath.Base(modulesTargetsFile), len(targets)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsModule, "module", "", "module filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average window for the accuracy trend")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig(statsModule, statsSince, statsLast)
	if err != nil {
		return err
	}
	if statsWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain {
		report, err := stats.BuildReport(cmd.Context(), st, cfg)
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), statsWindow, 0)
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg, statsWindow), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func statsConfig(module, since string, last int) (model.StatsConfig, error) {
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	cfg := model.StatsConfig{Module: strings.TrimSpace(module), Last: last}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <image>",
		Short: "Run one detection on an image file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheckCmd,
	}
	cmd.Flags().StringVar(&checkTarget, "target", "", "sign the image should show")
	cmd.Flags().StringVar(&serviceAPIURL, "api-url", "", "backend API base URL")
	cmd.Flags().StringVar(&serviceDetectURL, "detect-url", "", "detection endpoint URL")
	cmd.Flags().StringVar(&serviceToken, "token", "", "bearer token for the detection service")
	cmd.Flags().DurationVar(&serviceTimeout, "timeout", defaultTimeout, "HTTP request timeout")
	return cmd
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(checkTarget) == "" {
		return fmt.Errorf("--target must not be empty")
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	applyStringConfig(cmd, "api-url", &serviceAPIURL, fileCfg.Service.APIURL)
	applyStringConfig(cmd, "detect-url", &serviceDetectURL, fileCfg.Service.DetectURL)
	applyStringConfig(cmd, "token", &serviceToken, fileCfg.Service.Token)
	if err := applyDurationConfig(cmd, "timeout", &serviceTimeout, fileCfg.Service.Timeout); err != nil {
		return err
	}
	applyEnvString(cmd, "api-url", &serviceAPIURL, envCfg.APIURL)
	applyEnvString(cmd, "detect-url", &serviceDetectURL, envCfg.DetectURL)
	applyEnvString(cmd, "token", &serviceToken, envCfg.Token)
	applyEnvString(cmd, "log-level", &logLevel, envCfg.LogLevel)

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := logging.Stderr(level)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	sample := model.Sample{
		Data:        data,
		ContentType: http.DetectContentType(data),
		CapturedAt:  time.Now(),
	}
	url := resolveDetectURL(serviceDetectURL, serviceAPIURL)
	logger.Debug("sending detection", "url", url, "bytes", len(data), "target", checkTarget)

	client := detect.NewClient(url, serviceToken, serviceTimeout)
	res, err := client.Detect(cmd.Context(), sample, checkTarget)
	if err != nil {
		if detect.IsTransient(err) {
			logger.Warn("detection service unavailable or rejected the image", "url", url)
		}
		return fmt.Errorf("failed to detect: %w", err)
	}
	return printResult(cmd, res)
}

func printResult(cmd *cobra.Command, res model.ClassificationResult) error {
	out := cmd.OutOrStdout()
	lines := []string{fmt.Sprintf("Hands: %d", res.NumHands)}
	if res.HandsDetected {
		verdict := "incorrect"
		if res.IsCorrect {
			verdict = "correct"
		}
		lines = append(lines,
			fmt.Sprintf("Prediction: %s (%.0f%%)", res.PredictedLabel, res.Confidence*100),
			fmt.Sprintf("Verdict: %s", verdict),
		)
		if res.FeedbackMessage != "" {
			lines = append(lines, "Feedback: "+res.FeedbackMessage)
		}
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	if cmd.Flags().Changed(name) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*value))
	if err != nil {
		return fmt.Errorf("invalid %s in config: %w", name, err)
	}
	*target = d
	return nil
}

// applyEnvString overrides config file values, but not explicit flags.
func applyEnvString(cmd *cobra.Command, name string, target *string, value string) {
	if value == "" {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# signtutor configuration
# Uncomment a value to enable it. CLI flags and SIGNTUTOR_* environment
# variables override config values.

[practice]
# module = %q         # alphabets, numbers or words
# targets-file = ""           # One "label|hint" per line
# interval = %q           # Detection interval while the camera runs
# display = %q              # How long a verdict stays on screen
# simulate = false            # Use a simulated detector
# sim-hands = %.2f            # Simulated probability of detecting hands (0-1)
# sim-correct = %.2f          # Simulated probability of a correct sign (0-1)
# sim-latency = %q      # Simulated detection latency
# overlay = false             # Draw detected hand landmarks

[camera]
# device = ""                 # Platform default when empty
# input-format = ""           # v4l2, avfoundation or dshow
# width = %d
# height = %d
# quality = %d                # JPEG quality (1-100)
# ffmpeg = %q
# image-dir = ""              # Replay still images instead of a camera

[service]
# api-url = ""                # Backend API; local store when empty
# detect-url = %q
# token = ""
# user-id = ""
# timeout = %q
`,
		defaultModule,
		defaultInterval.String(),
		defaultDisplay.String(),
		defaultSimHands,
		defaultSimCorrect,
		defaultSimLatency.String(),
		defaultWidth,
		defaultHeight,
		defaultQuality,
		defaultFFmpeg,
		defaultDetectURL,
		defaultTimeout.String(),
	)
}

func validateConfig(cfg model.Config, cam model.CameraConfig, svc model.ServiceConfig) error {
	if strings.TrimSpace(cfg.Module) == "" {
		return fmt.Errorf("--module must not be empty")
	}
	if cfg.Interval < minInterval {
		return fmt.Errorf("--interval must be >= %s", minInterval)
	}
	if cfg.DisplayDuration <= 0 {
		return fmt.Errorf("--display must be > 0")
	}
	if cfg.SimHandsPct < 0 || cfg.SimHandsPct > 1 {
		return fmt.Errorf("--sim-hands must be between 0 and 1")
	}
	if cfg.SimCorrectPct < 0 || cfg.SimCorrectPct > 1 {
		return fmt.Errorf("--sim-correct must be between 0 and 1")
	}
	if cfg.SimLatency < 0 {
		return fmt.Errorf("--sim-latency must be >= 0")
	}
	if cam.Width <= 0 || cam.Height <= 0 {
		return fmt.Errorf("--width and --height must be > 0")
	}
	if cam.Quality < 1 || cam.Quality > 100 {
		return fmt.Errorf("--quality must be between 1 and 100")
	}
	if cam.ImageDir == "" && strings.TrimSpace(cam.FFmpegPath) == "" {
		return fmt.Errorf("--ffmpeg must not be empty")
	}
	if svc.Timeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if !cfg.Simulate && svc.DetectURL == "" {
		return fmt.Errorf("--detect-url must not be empty")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
