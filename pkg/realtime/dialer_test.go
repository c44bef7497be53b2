package realtime

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Dialer", func() {
	Describe("Options.Endpoint", func() {
		It("adds the model query parameter", func() {
			opts := Options{URL: "wss://api.openai.com/v1/realtime", Model: "gpt-realtime-mini-2025-10-06"}
			endpoint, err := opts.Endpoint()
			Expect(err).NotTo(HaveOccurred())
			Expect(endpoint).To(Equal("wss://api.openai.com/v1/realtime?model=gpt-realtime-mini-2025-10-06"))
		})

		It("keeps existing query parameters", func() {
			opts := Options{URL: "ws://localhost:8080/rt?debug=1", Model: "m"}
			endpoint, err := opts.Endpoint()
			Expect(err).NotTo(HaveOccurred())
			Expect(endpoint).To(Equal("ws://localhost:8080/rt?debug=1&model=m"))
		})

		It("rejects non websocket schemes", func() {
			_, err := Options{URL: "https://api.openai.com/v1/realtime"}.Endpoint()
			Expect(err).To(MatchError(ContainSubstring("ws or wss")))
		})

		It("rejects urls without a host", func() {
			_, err := Options{URL: "wss:///v1/realtime"}.Endpoint()
			Expect(err).To(MatchError(ContainSubstring("no host")))
		})
	})

	Describe("Options.Header", func() {
		It("sends a bearer token and the beta opt in", func() {
			h := Options{APIKey: "sk-test"}.Header()
			Expect(h.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(h.Get("OpenAI-Beta")).To(Equal("realtime=v1"))
		})
	})

	Describe("ParseProxy", func() {
		It("returns nil for an empty value", func() {
			u, err := ParseProxy("  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNil())
		})

		It("accepts http proxies", func() {
			u, err := ParseProxy("http://127.0.0.1:7890")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Host).To(Equal("127.0.0.1:7890"))
		})

		It("assumes http for a bare host and port", func() {
			u, err := ParseProxy("127.0.0.1:7890")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Scheme).To(Equal("http"))
		})

		It("rejects unknown schemes", func() {
			_, err := ParseProxy("ftp://proxy:21")
			Expect(err).To(MatchError(ContainSubstring("unsupported proxy scheme")))
		})
	})

	Describe("ProxyFromEnv", func() {
		env := func(vals map[string]string) func(string) string {
			return func(k string) string { return vals[k] }
		}

		It("prefers HTTPS_PROXY", func() {
			Expect(ProxyFromEnv(env(map[string]string{
				"HTTPS_PROXY": "http://a:1",
				"ALL_PROXY":   "http://b:2",
			}))).To(Equal("http://a:1"))
		})

		It("falls back to ALL_PROXY", func() {
			Expect(ProxyFromEnv(env(map[string]string{"ALL_PROXY": "http://b:2"}))).To(Equal("http://b:2"))
		})

		It("returns empty when neither is set", func() {
			Expect(ProxyFromEnv(env(nil))).To(BeEmpty())
		})
	})

	Describe("NewDialer", func() {
		It("connects directly with verification on by default", func() {
			d, err := NewDialer(Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Proxy).To(BeNil())
			Expect(d.HandshakeTimeout).To(Equal(DefaultOpenTimeout))
			Expect(d.TLSClientConfig.InsecureSkipVerify).To(BeFalse())
		})

		It("routes through the configured proxy", func() {
			d, err := NewDialer(Options{Proxy: "http://127.0.0.1:7890", OpenTimeout: 5 * time.Second})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.HandshakeTimeout).To(Equal(5 * time.Second))

			req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/realtime", nil)
			u, err := d.Proxy(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.String()).To(Equal("http://127.0.0.1:7890"))
		})

		It("disables verification when insecure", func() {
			d, err := NewDialer(Options{Insecure: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.TLSClientConfig.InsecureSkipVerify).To(BeTrue())
		})

		It("fails on an invalid proxy", func() {
			_, err := NewDialer(Options{Proxy: "gopher://x:70"})
			Expect(err).To(HaveOccurred())
		})
	})
})
