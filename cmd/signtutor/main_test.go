package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/signtutor/internal/backend"
	"github.com/verte-zerg/signtutor/internal/config"
	"github.com/verte-zerg/signtutor/internal/model"
	"github.com/verte-zerg/signtutor/internal/simulate"
	"github.com/verte-zerg/signtutor/internal/store"
)

func validSettings() (model.Config, model.CameraConfig, model.ServiceConfig) {
	return model.Config{
			Module:          defaultModule,
			Interval:        defaultInterval,
			DisplayDuration: defaultDisplay,
			SimHandsPct:     defaultSimHands,
			SimCorrectPct:   defaultSimCorrect,
			SimLatency:      defaultSimLatency,
		},
		model.CameraConfig{Width: defaultWidth, Height: defaultHeight, Quality: defaultQuality, FFmpegPath: defaultFFmpeg},
		model.ServiceConfig{DetectURL: defaultDetectURL, Timeout: defaultTimeout}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Config, *model.CameraConfig, *model.ServiceConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*model.Config, *model.CameraConfig, *model.ServiceConfig) {}},
		{name: "empty module", mutate: func(c *model.Config, _ *model.CameraConfig, _ *model.ServiceConfig) { c.Module = " " }, wantErr: "--module"},
		{name: "interval too short", mutate: func(c *model.Config, _ *model.CameraConfig, _ *model.ServiceConfig) { c.Interval = 10 * time.Millisecond }, wantErr: "--interval"},
		{name: "no display", mutate: func(c *model.Config, _ *model.CameraConfig, _ *model.ServiceConfig) { c.DisplayDuration = 0 }, wantErr: "--display"},
		{name: "sim hands range", mutate: func(c *model.Config, _ *model.CameraConfig, _ *model.ServiceConfig) { c.SimHandsPct = 1.5 }, wantErr: "--sim-hands"},
		{name: "sim correct range", mutate: func(c *model.Config, _ *model.CameraConfig, _ *model.ServiceConfig) { c.SimCorrectPct = -0.1 }, wantErr: "--sim-correct"},
		{name: "quality range", mutate: func(_ *model.Config, cam *model.CameraConfig, _ *model.ServiceConfig) { cam.Quality = 101 }, wantErr: "--quality"},
		{name: "size", mutate: func(_ *model.Config, cam *model.CameraConfig, _ *model.ServiceConfig) { cam.Width = 0 }, wantErr: "--width"},
		{name: "ffmpeg needed without image dir", mutate: func(_ *model.Config, cam *model.CameraConfig, _ *model.ServiceConfig) { cam.FFmpegPath = "" }, wantErr: "--ffmpeg"},
		{name: "image dir without ffmpeg", mutate: func(_ *model.Config, cam *model.CameraConfig, _ *model.ServiceConfig) {
			cam.FFmpegPath = ""
			cam.ImageDir = "/tmp/frames"
		}},
		{name: "timeout", mutate: func(_ *model.Config, _ *model.CameraConfig, svc *model.ServiceConfig) { svc.Timeout = 0 }, wantErr: "--timeout"},
		{name: "detect url needed", mutate: func(_ *model.Config, _ *model.CameraConfig, svc *model.ServiceConfig) { svc.DetectURL = "" }, wantErr: "--detect-url"},
		{name: "simulate needs no detect url", mutate: func(c *model.Config, _ *model.CameraConfig, svc *model.ServiceConfig) {
			c.Simulate = true
			svc.DetectURL = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, cam, svc := validSettings()
			tt.mutate(&cfg, &cam, &svc)
			err := validateConfig(cfg, cam, svc)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveDetectURL(t *testing.T) {
	tests := []struct {
		detect, api, want string
	}{
		{detect: "http://gpu:9000/detect", api: "http://api", want: "http://gpu:9000/detect"},
		{api: "http://api:5000/", want: "http://api:5000/api/detect"},
		{want: defaultDetectURL},
	}
	for _, tt := range tests {
		if got := resolveDetectURL(tt.detect, tt.api); got != tt.want {
			t.Fatalf("resolveDetectURL(%q, %q) = %q, want %q", tt.detect, tt.api, got, tt.want)
		}
	}
}

func TestApplyConfigRespectsFlags(t *testing.T) {
	var interval time.Duration
	var module string
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().DurationVar(&interval, "interval", defaultInterval, "")
	cmd.Flags().StringVar(&module, "module", defaultModule, "")
	if err := cmd.Flags().Parse([]string{"--module", "words"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	fileInterval := "750ms"
	fileModule := "numbers"
	if err := applyDurationConfig(cmd, "interval", &interval, &fileInterval); err != nil {
		t.Fatalf("apply duration: %v", err)
	}
	applyStringConfig(cmd, "module", &module, &fileModule)
	if interval != 750*time.Millisecond {
		t.Fatalf("expected config interval, got %s", interval)
	}
	if module != "words" {
		t.Fatalf("expected flag to win, got %q", module)
	}

	bad := "soon"
	var other time.Duration
	cmd.Flags().DurationVar(&other, "display", defaultDisplay, "")
	if err := applyDurationConfig(cmd, "display", &other, &bad); err == nil {
		t.Fatalf("expected invalid duration error")
	}

	applyEnvString(cmd, "module", &module, "alphabets")
	if module != "words" {
		t.Fatalf("expected flag to win over env, got %q", module)
	}
	var token string
	cmd.Flags().StringVar(&token, "token", "", "")
	applyEnvString(cmd, "token", &token, "secret")
	if token != "secret" {
		t.Fatalf("expected env value, got %q", token)
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var cfg config.FileConfig
	if _, err := toml.Decode(defaultConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template is not valid TOML: %v", err)
	}
	if cfg.Practice.Module != nil {
		t.Fatalf("expected every value to be commented out")
	}
}

func TestStatsConfig(t *testing.T) {
	cfg, err := statsConfig(" words ", "2026-01-02", 3)
	if err != nil {
		t.Fatalf("stats config: %v", err)
	}
	if cfg.Module != "words" || cfg.Last != 3 || cfg.Since == nil || cfg.Since.Day() != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := statsConfig("", "02/01/2026", 0); err == nil {
		t.Fatalf("expected invalid date error")
	}
	if _, err := statsConfig("", "", -1); err == nil {
		t.Fatalf("expected negative last error")
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestBuildServicesLocal(t *testing.T) {
	st := openTestStore(t)
	cfg, cam, svc := validSettings()
	settings := practiceSettings{practice: cfg, camera: cam, service: svc}

	service, targets, err := buildServices(settings, st, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if service != st {
		t.Fatalf("expected the local store as session service")
	}
	list, err := targets.GetTargets(context.Background(), defaultModule)
	if err != nil || len(list) != 26 {
		t.Fatalf("expected builtin alphabet, got %d targets (%v)", len(list), err)
	}
}

func TestBuildServicesTargetsFileAndRemote(t *testing.T) {
	st := openTestStore(t)
	path := filepath.Join(t.TempDir(), "colors.txt")
	if err := os.WriteFile(path, []byte("red|touch the lips\nblue\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, cam, svc := validSettings()
	cfg.Module = customModule
	cfg.TargetsFile = path
	svc.APIURL = "http://127.0.0.1:1"
	settings := practiceSettings{practice: cfg, camera: cam, service: svc}

	service, targets, err := buildServices(settings, st, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := service.(*backend.Mirror); !ok {
		t.Fatalf("expected a mirrored remote service, got %T", service)
	}
	list, err := targets.GetTargets(context.Background(), customModule)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	if len(list) != 2 || list[0].Label != "red" || list[0].Hint != "touch the lips" {
		t.Fatalf("unexpected targets: %+v", list)
	}
}

func TestBuildDetectorSimulate(t *testing.T) {
	st := openTestStore(t)
	cfg, cam, svc := validSettings()
	cfg.Simulate = true
	cfg.SimHandsPct = 1
	cfg.SimCorrectPct = 0
	cfg.SimLatency = 0
	settings := practiceSettings{practice: cfg, camera: cam, service: svc}
	_, targets, err := buildServices(settings, st, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	det, err := buildDetector(context.Background(), settings, targets)
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	if _, ok := det.(*simulate.Detector); !ok {
		t.Fatalf("expected simulated detector, got %T", det)
	}
	res, err := det.Detect(context.Background(), model.Sample{}, "A")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if res.IsCorrect || res.PredictedLabel == "A" || res.PredictedLabel == "" {
		t.Fatalf("expected a wrong alphabet prediction, got %+v", res)
	}

	cfg.Module = "colors"
	settings.practice = cfg
	if _, err := buildDetector(context.Background(), settings, targets); err == nil {
		t.Fatalf("expected unknown module error")
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := printResult(cmd, model.ClassificationResult{
		HandsDetected:   true,
		NumHands:        1,
		PredictedLabel:  "B",
		Confidence:      0.87,
		IsCorrect:       true,
		FeedbackMessage: "Perfect sign!",
	})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	want := "Hands: 1\nPrediction: B (87%)\nVerdict: correct\nFeedback: Perfect sign!\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}
