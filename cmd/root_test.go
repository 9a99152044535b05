package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"smtpc/config"
	"smtpc/internal/console"
	ncerr "smtpc/internal/errors"
	"smtpc/util"
)

// run calls execute with buffered streams and returns what was written.
func run(t *testing.T, input string, interactive bool, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = execute(context.Background(), args, stdio{
		in:          strings.NewReader(input),
		out:         &out,
		err:         &errOut,
		interactive: interactive,
	})
	return out.String(), errOut.String(), err
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	out, _, err := run(t, "", false, "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "smtpc "+version) {
		t.Errorf("output = %q, want version", out)
	}
}

// TestExecute_Help verifies --help prints usage without error.
func TestExecute_Help(t *testing.T) {
	_, errOut, err := run(t, "", false, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Usage:", "--upstream", "--max-data-retries"} {
		if !strings.Contains(errOut, want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"connect", []string{"mail.example.com", "50000", "--dry-run"}, "connect mail.example.com:50000"},
		{"defaults", []string{"--dry-run"}, "connect localhost:50000"},
		{"tunnel", []string{"-T", "alice@gw.example.com", "mail", "50000", "--dry-run"}, "via ssh alice@gw.example.com:22"},
		{"bridge", []string{"--bridge", "-l", "-p", "50000", "--upstream", "mx.example.com", "--dry-run"}, "bridge :50000 -> mx.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, "", false, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("summary = %q, want %q", out, tt.want)
			}
		})
	}
}

// TestExecute_DryRunSkipsPrompts never reads operator input.
func TestExecute_DryRunSkipsPrompts(t *testing.T) {
	out, _, err := run(t, "", true, "--dry-run")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "Port Number") {
		t.Errorf("dry run prompted: %q", out)
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"bridge without upstream", []string{"--bridge", "-l", "-p", "50000", "--dry-run"}, "upstream"},
		{"bridge without listen", []string{"--bridge", "--upstream", "mx", "--dry-run"}, "listen"},
		{"listen without bridge", []string{"-l", "-p", "50000", "--dry-run"}, "listen"},
		{"negative retries", []string{"--retries=-1", "--dry-run"}, "retries"},
		{"bad tunnel", []string{"-T", "a@b:99999", "--dry-run"}, "tunnel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, "", false, tt.args...)
			var ce *ncerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

// TestExecute_BadArguments covers errors raised before validation.
func TestExecute_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--nonexistent-flag"}},
		{"privileged port", []string{"localhost", "80", "--dry-run"}},
		{"non-numeric port", []string{"localhost", "smtp", "--dry-run"}},
		{"too many args", []string{"a", "50000", "extra", "--dry-run"}},
		{"bridge with host", []string{"--bridge", "-l", "-p", "50000", "--upstream", "mx", "host", "--dry-run"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := run(t, "", false, tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// TestExecute_InteractiveUnreachable walks the start-up prompts and
// then fails to connect.
func TestExecute_InteractiveUnreachable(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(t.TempDir(), "smtpc.log")

	input := strconv.Itoa(port) + "\nn\n"
	out, _, err := run(t, input, true,
		"--retries", "1", "--log-file", logPath, "127.0.0.1")
	if !errors.Is(err, ncerr.ErrTerminated) {
		t.Fatalf("err = %v, want ErrTerminated", err)
	}
	for _, want := range []string{"Please Enter Port Number", "Verbose is disabled.", "is unreachable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[ERR] connect to 127.0.0.1:"+strconv.Itoa(port)) {
		t.Errorf("log missing connect failure:\n%s", data)
	}
}

// TestExecute_PortGivenSkipsPrompt only asks about verbosity.
func TestExecute_PortGivenSkipsPrompt(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(t.TempDir(), "smtpc.log")

	out, _, _ := run(t, "y\n", true, "--no-banner", "--retries", "1",
		"--log-file", logPath, "127.0.0.1", strconv.Itoa(port))
	if strings.Contains(out, "Port Number") {
		t.Errorf("port prompt shown although a port was given")
	}
	if !strings.Contains(out, "Verbose is enabled.") {
		t.Errorf("output = %q", out)
	}
}

func TestPromptPort(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
		msgs  []string
	}{
		{"default", "\n", config.DefaultPort, nil},
		{"valid", "3000\n", 3000, nil},
		{"retry", "abc\n80\n4000\n", 4000, []string{`"abc" is not valid Port Number.`, "Port must be a number!", "Port number must be between"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			con := console.New(strings.NewReader(tt.input), &out)
			got, err := promptPort(con, config.DefaultPort)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("port = %d, want %d", got, tt.want)
			}
			for _, m := range tt.msgs {
				if !strings.Contains(out.String(), m) {
					t.Errorf("output missing %q", m)
				}
			}
		})
	}
}

func TestPromptPort_OperatorGone(t *testing.T) {
	con := console.New(strings.NewReader(""), &bytes.Buffer{})
	if _, err := promptPort(con, config.DefaultPort); !errors.Is(err, ncerr.ErrOperatorGone) {
		t.Errorf("err = %v, want ErrOperatorGone", err)
	}
}

func TestPromptVerbose(t *testing.T) {
	tests := []struct {
		input string
		want  bool
		msg   string
	}{
		{"n\n", false, "Verbose is disabled."},
		{"N\n", false, "Verbose is disabled."},
		{"y\n", true, "Verbose is enabled."},
		{"\n", true, "Verbose is enabled."},
		{"maybe\n", true, "Sorry, Wrong answer, Verbose is enabled."},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		con := console.New(strings.NewReader(tt.input), &out)
		got, err := promptVerbose(con)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("%q: verbose = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), tt.msg) {
			t.Errorf("%q: output = %q, want %q", tt.input, out.String(), tt.msg)
		}
	}
}

func TestBuildLogger(t *testing.T) {
	t.Run("file gets debug entries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "smtpc.log")
		cfg := config.Default()
		cfg.LogFile = path
		cfg.Verbose = false

		var stderr bytes.Buffer
		logger := buildLogger(cfg, &stderr)
		logger.Debug("frame out %q", "QUIT")
		logger.Error("boom")
		logger.Close()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `[DBG] frame out "QUIT"`) {
			t.Errorf("log = %q", data)
		}
		if stderr.Len() != 0 {
			t.Errorf("non-verbose logger echoed %q", stderr.String())
		}
	})

	t.Run("verbose echoes errors", func(t *testing.T) {
		cfg := config.Default()
		cfg.LogFile = filepath.Join(t.TempDir(), "smtpc.log")

		var stderr bytes.Buffer
		logger := buildLogger(cfg, &stderr)
		defer logger.Close()
		logger.Error("boom")
		if !strings.Contains(stderr.String(), "[ERR] boom") {
			t.Errorf("stderr = %q", stderr.String())
		}
	})

	t.Run("unusable file falls back to stderr", func(t *testing.T) {
		cfg := config.Default()
		cfg.LogFile = filepath.Join(t.TempDir(), "missing", "smtpc.log")
		cfg.Verbose = false

		var stderr bytes.Buffer
		logger := buildLogger(cfg, &stderr)
		defer logger.Close()
		if !strings.Contains(stderr.String(), "log file not working") {
			t.Errorf("stderr = %q", stderr.String())
		}
	})

	t.Run("dash with verbose writes errors once", func(t *testing.T) {
		cfg := config.Default()
		cfg.LogFile = "-"
		cfg.Verbose = true

		var stderr bytes.Buffer
		logger := buildLogger(cfg, &stderr)
		logger.Error("boom")
		if got := strings.Count(stderr.String(), "[ERR] boom"); got != 1 {
			t.Errorf("error written %d times: %q", got, stderr.String())
		}
	})

	t.Run("dash logs to stderr at the chosen level", func(t *testing.T) {
		cfg := config.Default()
		cfg.LogFile = "-"

		var stderr bytes.Buffer
		logger := buildLogger(cfg, &stderr)
		logger.Debug("hidden")
		if strings.Contains(stderr.String(), "hidden") {
			t.Errorf("debug entry written at level %d", cfg.LogLevel)
		}
	})
}
