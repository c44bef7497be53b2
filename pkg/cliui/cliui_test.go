package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/rtcheck/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("runs fn and prints a success line for non-terminal writers", func() {
		var buf bytes.Buffer
		called := false

		err := cliui.Step(&buf, "Opening connection", func() error {
			called = true
			return nil
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(called).To(BeTrue())
		Expect(buf.String()).To(ContainSubstring("Opening connection"))
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
		Expect(buf.String()).NotTo(ContainSubstring("\r"))
	})

	It("returns the error from fn and prints a failure mark", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "Opening connection", func() error { return boom })

		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})
})

var _ = Describe("FormatDuration", func() {
	It("formats sub-second durations in milliseconds", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("formats longer durations in seconds", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Mark", func() {
	It("maps nil to the success mark", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})
})

var _ = Describe("IsTerminal", func() {
	It("is false for in-memory writers", func() {
		Expect(cliui.IsTerminal(&bytes.Buffer{})).To(BeFalse())
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("keeps the text of the rendered content", func() {
		out, err := cliui.RenderMarkdown("What is your **north star** metric?")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("north star"))
	})
})
