package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/deinterlace/config"
	"github.com/opd-ai/deinterlace/internal/runner"
	"github.com/opd-ai/deinterlace/method"
	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCLIConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      *CLIConfig
		wantErr     bool
		errContains string
	}{
		{
			name:   "stdin to discard",
			config: &CLIConfig{input: "-"},
		},
		{
			name:   "files",
			config: &CLIConfig{input: "in.yuv", output: "out.yuv", digests: "out.b2"},
		},
		{
			name:   "stdin to stdout",
			config: &CLIConfig{input: "-", output: "-"},
		},
		{
			name:        "empty input",
			config:      &CLIConfig{},
			wantErr:     true,
			errContains: "input cannot be empty",
		},
		{
			name:        "output overwrites input",
			config:      &CLIConfig{input: "a.yuv", output: "a.yuv"},
			wantErr:     true,
			errContains: "output must differ",
		},
		{
			name:        "digests overwrite output",
			config:      &CLIConfig{input: "a.yuv", output: "b.yuv", digests: "b.yuv"},
			wantErr:     true,
			errContains: "digests file must differ",
		},
		{
			name:        "progress with stdout",
			config:      &CLIConfig{input: "a.yuv", output: "-", progress: true},
			wantErr:     true,
			errContains: "-progress cannot be combined",
		},
		{
			name:        "negative width",
			config:      &CLIConfig{input: "-", width: -1},
			wantErr:     true,
			errContains: "dimensions cannot be negative",
		},
		{
			name:        "negative workers",
			config:      &CLIConfig{input: "-", workers: -2},
			wantErr:     true,
			errContains: "workers cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCLIConfig(tt.config)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestParseCLIFlags(t *testing.T) {
	cli, err := parseCLIFlags([]string{"-method", "linear", "-width", "320", "-progress"})
	require.NoError(t, err)
	assert.Equal(t, "linear", cli.method)
	assert.Equal(t, 320, cli.width)
	assert.True(t, cli.progress)
	assert.Equal(t, "-", cli.input)
	assert.True(t, cli.set["method"])
	assert.True(t, cli.set["width"])
	assert.False(t, cli.set["height"])

	def := config.Default()
	assert.Equal(t, def.Input.Height, cli.height)
	assert.Equal(t, def.LogLevel, cli.logLevel)

	_, err = parseCLIFlags([]string{"-no-such-flag"})
	assert.Error(t, err)

	_, err = parseCLIFlags([]string{"-method", "yadif", "stray"})
	assert.ErrorContains(t, err, "unexpected argument")
}

func TestBuildConfigDefaults(t *testing.T) {
	cli, err := parseCLIFlags(nil)
	require.NoError(t, err)

	cfg, err := buildConfig(cli)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deinterlace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
deinterlace:
  method: linear
  workers: 2
input:
  width: 320
  height: 240
  framerate: 30000/1001
`), 0o600))

	cli, err := parseCLIFlags([]string{
		"-config", path,
		"-method", "yadif",
		"-cadence", "tff; tff,rff ;",
		"-ignore-obscure=false",
	})
	require.NoError(t, err)

	cfg, err := buildConfig(cli)
	require.NoError(t, err)
	assert.Equal(t, "yadif", cfg.Deinterlace.Method, "flag wins")
	assert.Equal(t, 2, cfg.Deinterlace.Workers, "file value kept")
	assert.Equal(t, 320, cfg.Input.Width)
	assert.Equal(t, "30000/1001", cfg.Input.FrameRate)
	assert.Equal(t, []string{"tff", "tff,rff"}, cfg.Input.Cadence)
	assert.False(t, cfg.Deinterlace.IgnoreObscure)
}

func TestBuildConfigErrors(t *testing.T) {
	cli, err := parseCLIFlags([]string{"-method", "sharpen"})
	require.NoError(t, err)
	_, err = buildConfig(cli)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cli, err = parseCLIFlags([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	_, err = buildConfig(cli)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestCreateRunnerConfig(t *testing.T) {
	cli, err := parseCLIFlags([]string{
		"-width", "16", "-height", "8",
		"-cadence", "tff;onefield",
		"-method", "greedyl",
		"-max-frames", "7",
	})
	require.NoError(t, err)
	cfg, err := buildConfig(cli)
	require.NoError(t, err)

	rc, err := createRunnerConfig(cfg, cli)
	require.NoError(t, err)
	assert.Equal(t, 16, rc.Info.Width)
	assert.Equal(t, 8, rc.Info.Height)
	assert.Equal(t, []video.Flags{video.FlagTFF, video.FlagOneField}, rc.Cadence)
	assert.Equal(t, method.GreedyL, rc.Options.Method)
	assert.Equal(t, uint64(7), rc.MaxFrames)
}

func TestExpectedFrames(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		frameSize int
		maxFrames uint64
		want      uint64
	}{
		{"unknown size", 0, 100, 0, 0},
		{"from size", 1000, 100, 0, 10},
		{"partial frame", 1050, 100, 0, 10},
		{"max frames smaller", 1000, 100, 4, 4},
		{"max frames larger", 1000, 100, 40, 10},
		{"max frames only", 0, 100, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expectedFrames(tt.size, tt.frameSize, tt.maxFrames))
		})
	}
}

func TestListMethods(t *testing.T) {
	var buf bytes.Buffer
	listMethods(&buf)
	out := buf.String()
	for _, id := range method.IDs() {
		d, err := method.Describe(id)
		require.NoError(t, err)
		assert.Contains(t, out, d.ShortID)
		assert.Contains(t, out, d.Name)
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	out := buf.String()
	assert.Contains(t, out, "Raw Video Deinterlacer")
	assert.Contains(t, out, "-cadence")
	assert.Contains(t, out, "-list-methods")
	assert.Contains(t, out, "Examples:")
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	_, err := setupLogging("chatty", "")
	assert.ErrorContains(t, err, "invalid log level")

	path := filepath.Join(t.TempDir(), "run.log")
	closer, err := setupLogging("debug", path)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logrus.WithField("function", "TestSetupLogging").Debug("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestConvertFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yuv")
	out := filepath.Join(dir, "out.yuv")
	digests := filepath.Join(dir, "out.b2")

	cli, err := parseCLIFlags([]string{
		"-input", in, "-output", out, "-digests", digests,
		"-width", "16", "-height", "8", "-method", "linear",
	})
	require.NoError(t, err)
	require.NoError(t, validateCLIConfig(cli))
	cfg, err := buildConfig(cli)
	require.NoError(t, err)
	rc, err := createRunnerConfig(cfg, cli)
	require.NoError(t, err)

	var raw bytes.Buffer
	for i := 0; i < 3; i++ {
		f, err := video.NewFrame(rc.Info)
		require.NoError(t, err)
		for p := range f.Planes {
			for j := range f.Planes[p] {
				f.Planes[p][j] = byte(i + j)
			}
		}
		require.NoError(t, video.WriteFrame(&raw, f))
	}
	require.NoError(t, os.WriteFile(in, raw.Bytes(), 0o600))

	closeAll, size, err := openStreams(cli, &rc)
	require.NoError(t, err)
	assert.Equal(t, int64(raw.Len()), size)
	assert.Equal(t, uint64(3), expectedFrames(size, rc.Info.FrameSize(), 0))

	r, err := runner.New(rc)
	require.NoError(t, err)
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, closeAll())

	assert.Equal(t, uint64(6), res.FramesOut)
	st, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(6*rc.Info.FrameSize()), st.Size())

	lines, err := os.ReadFile(digests)
	require.NoError(t, err)
	assert.Equal(t, 6, bytes.Count(lines, []byte("\n")))
}

func TestOpenStreamsMissingInput(t *testing.T) {
	cli := &CLIConfig{input: filepath.Join(t.TempDir(), "absent.yuv")}
	var rc runner.Config
	_, _, err := openStreams(cli, &rc)
	assert.ErrorContains(t, err, "failed to open input")
}
