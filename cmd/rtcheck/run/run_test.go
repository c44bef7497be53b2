package runcmder

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/rtcheck/pkg/credentials"
	"github.com/papercomputeco/rtcheck/pkg/git"
	"github.com/papercomputeco/rtcheck/pkg/realtime"
)

// scriptedStream replays frames after both client events are sent.
type scriptedStream struct {
	frames []string
	sent   []string
	closed bool
	block  bool
}

func (s *scriptedStream) Send(_ context.Context, ev realtime.ClientEvent) error {
	s.sent = append(s.sent, ev.EventType())
	return nil
}

func (s *scriptedStream) Recv(ctx context.Context) (*realtime.ServerEvent, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if len(s.frames) == 0 {
		return nil, errors.New("connection closed")
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return realtime.DecodeServerEvent([]byte(frame))
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

var _ = Describe("Run command", func() {
	var (
		tmpDir   string
		env      map[string]string
		stream   *scriptedStream
		dials    int
		lastOpts realtime.Options
		out      *bytes.Buffer
		errOut   *bytes.Buffer
	)

	newCmder := func() *runCommander {
		return &runCommander{
			getenv: func(k string) string { return env[k] },
			dial: func(_ context.Context, opts realtime.Options, _ *slog.Logger) (checkStream, error) {
				dials++
				lastOpts = opts
				return stream, nil
			},
			repo: &git.Detector{Run: func(context.Context, string, ...string) (string, error) {
				return "/src/moment", nil
			}},
		}
	}

	execute := func(cmder *runCommander, args ...string) error {
		cmd := newRunCmd(cmder)
		cmd.PersistentFlags().String("config-dir", "", "Override path to .rtcheck/ config directory")
		cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
		cmd.SetOut(out)
		cmd.SetErr(errOut)
		cmd.SetArgs(append([]string{"--config-dir", tmpDir, "--xcconfig", "-"}, args...))
		return cmd.ExecuteContext(context.Background())
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		env = map[string]string{"OPENAI_API_KEY": "sk-test-key"}
		stream = &scriptedStream{}
		dials = 0
		lastOpts = realtime.Options{}
		out = &bytes.Buffer{}
		errOut = &bytes.Buffer{}
	})

	Describe("NewRunCmd", func() {
		It("registers the check flags", func() {
			cmd := NewRunCmd()
			for _, name := range []string{
				"url", "model", "open-timeout", "proxy", "insecure", "session-instructions",
				"prompt", "xcconfig", "kafka-brokers", "kafka-topic", "render", "publish", "log-file",
			} {
				Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
			}
		})

		It("defaults to the mini realtime model", func() {
			cmd := NewRunCmd()
			Expect(cmd.Flags().Lookup("model").DefValue).To(Equal("gpt-realtime-mini-2025-10-06"))
			Expect(cmd.Flags().Lookup("open-timeout").DefValue).To(Equal("30s"))
		})
	})

	It("fails before dialing when no api key is available", func() {
		env = map[string]string{}

		err := execute(newCmder())
		Expect(err).To(MatchError(credentials.ErrAPIKeyNotFound))
		Expect(dials).To(Equal(0))
		Expect(out.String()).NotTo(ContainSubstring("Connecting to"))
	})

	It("prints exactly the concatenated deltas on completion", func() {
		stream.frames = []string{
			`{"type":"session.updated"}`,
			`{"type":"response.output_text.delta","delta":"What is your "}`,
			`{"type":"response.output_text.delta","delta":"north star?"}`,
			`{"type":"response.completed"}`,
		}

		Expect(execute(newCmder())).To(Succeed())
		Expect(dials).To(Equal(1))
		Expect(stream.sent).To(Equal([]string{"session.update", "response.create"}))
		Expect(stream.closed).To(BeTrue())

		output := out.String()
		Expect(output).To(ContainSubstring("Connecting to gpt-realtime-mini-2025-10-06 ...\n"))
		Expect(output).To(ContainSubstring("Proxy: none (direct connection)\n"))
		Expect(output).To(ContainSubstring("Session update sent.\n"))
		Expect(output).To(ContainSubstring("Prompt request sent, awaiting stream ...\n"))
		Expect(output).To(ContainSubstring("Session updated ack received.\n"))
		Expect(output).To(HaveSuffix("Response completed:\nWhat is your north star?\n"))
	})

	It("stops at a server error and exits with an error", func() {
		stream.frames = []string{
			`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`,
			`{"type":"response.output_text.delta","delta":"never"}`,
			`{"type":"response.completed"}`,
		}

		err := execute(newCmder())

		var serr *realtime.ServerError
		Expect(errors.As(err, &serr)).To(BeTrue())
		Expect(out.String()).To(ContainSubstring(`Server error: {"type":"error"`))
		Expect(out.String()).NotTo(ContainSubstring("Response completed:"))
		Expect(stream.frames).To(HaveLen(2))
	})

	It("returns an error when the connection drops", func() {
		stream.frames = []string{`{"type":"response.output_text.delta","delta":"half"}`}

		err := execute(newCmder())
		Expect(err).To(MatchError(ContainSubstring("connection lost")))
	})

	It("wraps dial failures", func() {
		cmder := newCmder()
		cmder.dial = func(context.Context, realtime.Options, *slog.Logger) (checkStream, error) {
			return nil, errors.New("handshake timeout")
		}

		err := execute(cmder)
		Expect(err).To(MatchError(ContainSubstring("connecting to gpt-realtime-mini-2025-10-06")))
		Expect(err).To(MatchError(ContainSubstring("handshake timeout")))
	})

	It("treats cancellation as success", func() {
		stream.block = true
		cmder := newCmder()

		cmd := newRunCmd(cmder)
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.SetOut(out)
		cmd.SetErr(errOut)
		cmd.SetArgs([]string{"--config-dir", tmpDir, "--xcconfig", "-"})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		Expect(cmd.ExecuteContext(ctx)).To(Succeed())
		Expect(out.String()).To(HaveSuffix("Cancelled by user.\n"))
	})

	Describe("proxy selection", func() {
		BeforeEach(func() {
			stream.frames = []string{`{"type":"response.completed"}`}
		})

		It("uses the --proxy flag", func() {
			env["HTTPS_PROXY"] = "http://env-proxy:1"

			Expect(execute(newCmder(), "--proxy", "http://127.0.0.1:7890")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Using proxy: http://127.0.0.1:7890\n"))
			Expect(lastOpts.Proxy).To(Equal("http://127.0.0.1:7890"))
		})

		It("falls back to HTTPS_PROXY then ALL_PROXY", func() {
			env["ALL_PROXY"] = "socks5://127.0.0.1:1080"

			Expect(execute(newCmder())).To(Succeed())
			Expect(lastOpts.Proxy).To(Equal("socks5://127.0.0.1:1080"))

			env["HTTPS_PROXY"] = "http://127.0.0.1:3128"
			out.Reset()
			stream.frames = []string{`{"type":"response.completed"}`}

			Expect(execute(newCmder())).To(Succeed())
			Expect(lastOpts.Proxy).To(Equal("http://127.0.0.1:3128"))
		})
	})

	It("warns when TLS verification is disabled", func() {
		stream.frames = []string{`{"type":"response.completed"}`}

		Expect(execute(newCmder(), "--insecure")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("SSL verification disabled for debug purposes."))
		Expect(lastOpts.Insecure).To(BeTrue())
	})

	It("passes the configured instructions and endpoint to the session", func() {
		stream.frames = []string{`{"type":"response.completed"}`}

		Expect(execute(newCmder(),
			"--model", "gpt-realtime",
			"--url", "ws://localhost:9000/v1/realtime",
			"--open-timeout", "5s",
		)).To(Succeed())
		Expect(lastOpts.Model).To(Equal("gpt-realtime"))
		Expect(lastOpts.URL).To(Equal("ws://localhost:9000/v1/realtime"))
		Expect(lastOpts.OpenTimeout).To(Equal(5 * time.Second))
		Expect(lastOpts.APIKey).To(Equal("sk-test-key"))
	})

	It("reads settings from config.toml", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"),
			[]byte("[realtime]\nmodel = \"gpt-from-config\"\n"), 0o600)).To(Succeed())
		stream.frames = []string{`{"type":"response.completed"}`}

		Expect(execute(newCmder())).To(Succeed())
		Expect(lastOpts.Model).To(Equal("gpt-from-config"))
	})

	It("uses a key stored with the auth command", func() {
		env = map[string]string{}
		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
		stream.frames = []string{`{"type":"response.completed"}`}

		Expect(execute(newCmder())).To(Succeed())
		Expect(lastOpts.APIKey).To(Equal("sk-stored"))
	})

	It("writes JSON logs to --log-file", func() {
		logPath := filepath.Join(tmpDir, "rtcheck.log")
		stream.frames = []string{`{"type":"response.completed"}`}

		Expect(execute(newCmder(), "--log-file", logPath)).To(Succeed())

		data, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"check finished"`))
		Expect(string(data)).To(ContainSubstring(`"source":`))
	})

	It("falls back to the nop publisher when no brokers are configured", func() {
		stream.frames = []string{`{"type":"response.completed"}`}

		Expect(execute(newCmder(), "--publish")).To(Succeed())
		Expect(errOut.String()).To(ContainSubstring("no kafka brokers configured"))
	})
})
