package realtime

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Events", func() {
	Describe("NewSessionUpdate", func() {
		It("requests text only output with the given instructions", func() {
			b, err := json.Marshal(NewSessionUpdate("be cheerful"))
			Expect(err).NotTo(HaveOccurred())

			var got map[string]any
			Expect(json.Unmarshal(b, &got)).To(Succeed())
			Expect(got["type"]).To(Equal("session.update"))
			Expect(got["event_id"]).To(HavePrefix("evt_"))
			Expect(got["session"]).To(Equal(map[string]any{
				"modalities":   []any{"text"},
				"instructions": "be cheerful",
			}))
		})
	})

	Describe("NewResponseCreate", func() {
		It("puts the instructions on the response object", func() {
			ev := NewResponseCreate("ask a question")
			Expect(ev.EventType()).To(Equal(EventResponseCreate))
			Expect(ev.Response.Modalities).To(Equal([]string{ModalityText}))
			Expect(ev.Response.Instructions).To(Equal("ask a question"))
		})

		It("gives every event a distinct id", func() {
			Expect(NewResponseCreate("a").EventID).NotTo(Equal(NewResponseCreate("a").EventID))
		})
	})

	Describe("DecodeServerEvent", func() {
		It("decodes a text delta", func() {
			ev, err := DecodeServerEvent([]byte(`{"type":"response.output_text.delta","delta":"Hel"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsTextDelta()).To(BeTrue())
			Expect(ev.Delta).To(Equal("Hel"))
			Expect(string(ev.Raw)).To(ContainSubstring(`"delta":"Hel"`))
		})

		It("treats the beta delta name as a text delta", func() {
			ev, err := DecodeServerEvent([]byte(`{"type":"response.text.delta","delta":"x"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsTextDelta()).To(BeTrue())
		})

		It("recognizes both completion names", func() {
			for _, t := range []string{EventResponseCompleted, EventResponseDone} {
				ev, err := DecodeServerEvent([]byte(`{"type":"` + t + `","response":{"status":"completed"}}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.IsCompletion()).To(BeTrue())
				Expect(ev.Response.Status).To(Equal("completed"))
			}
		})

		It("decodes the error object", func() {
			ev, err := DecodeServerEvent([]byte(`{"type":"error","error":{"type":"invalid_request_error","code":"bad_model","message":"nope"}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Error).NotTo(BeNil())
			Expect(ev.Error.Code).To(Equal("bad_model"))
			Expect(ev.Error.Message).To(Equal("nope"))
		})

		It("keeps error events whose code is not a string", func() {
			ev, err := DecodeServerEvent([]byte(`{"type":"error","error":{"type":"server_error","code":500,"message":"boom","param":null}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal(EventError))
			Expect(ev.Error).NotTo(BeNil())
			Expect(ev.Error.Code).To(Equal("500"))
			Expect(ev.Error.Message).To(Equal("boom"))
			Expect(ev.Error.Param).To(BeEmpty())
		})

		It("takes a bare error string as the message", func() {
			ev, err := DecodeServerEvent([]byte(`{"type":"error","error":"rate limited"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Error.Message).To(Equal("rate limited"))
		})

		It("keeps the raw text of an error that is neither object nor string", func() {
			ev, err := DecodeServerEvent([]byte(`{"type":"error","error":42}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Error.Message).To(Equal("42"))
		})

		It("still dispatches on type when another field has an unexpected type", func() {
			ev, err := DecodeServerEvent([]byte(`{"type":"response.output_text.delta","delta":7,"event_id":"ev_1"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsTextDelta()).To(BeTrue())
			Expect(ev.Delta).To(BeEmpty())
			Expect(string(ev.Raw)).To(ContainSubstring(`"delta":7`))
		})

		It("rejects a type that is not a string", func() {
			_, err := DecodeServerEvent([]byte(`{"type":5}`))
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid JSON", func() {
			_, err := DecodeServerEvent([]byte(`not json`))
			Expect(err).To(HaveOccurred())
		})

		It("rejects frames without a type", func() {
			_, err := DecodeServerEvent([]byte(`{"delta":"x"}`))
			Expect(err).To(MatchError(ContainSubstring("missing type")))
		})
	})
})
