package shell_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/heatloop/internal/control"
	"github.com/san-kum/heatloop/internal/shell"
)

var _ = Describe("Parse", func() {
	DescribeTable("valid commands",
		func(line string, want shell.Command) {
			cmd, err := shell.Parse(line)
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd).To(Equal(want))
		},
		Entry("bare start", "START", shell.Command{Verb: shell.Start}),
		Entry("start with target", "START TARGET=7000", shell.Command{Verb: shell.Start, Target: 7000, HasTarget: true}),
		Entry("lower case", "start target=6500", shell.Command{Verb: shell.Start, Target: 6500, HasTarget: true}),
		Entry("stop", "STOP", shell.Command{Verb: shell.Stop}),
		Entry("stop with comment", "STOP # heater off", shell.Command{Verb: shell.Stop}),
		Entry("target", "TARGET 8000", shell.Command{Verb: shell.Target, Target: 8000, HasTarget: true}),
		Entry("target pair", "target TARGET=-50", shell.Command{Verb: shell.Target, Target: -50, HasTarget: true}),
		Entry("status", "status", shell.Command{Verb: shell.Status}),
		Entry("reset", "RESET", shell.Command{Verb: shell.Reset}),
		Entry("set gains", "SET Kp=60 ki=2", shell.Command{Verb: shell.Set, Params: map[string]int32{"kp": 60, "ki": 2}}),
		Entry("set mode by name", "SET mode=error", shell.Command{Verb: shell.Set, Params: map[string]int32{"mode": int32(control.OnError)}}),
		Entry("set mode by number", "SET mode=0", shell.Command{Verb: shell.Set, Params: map[string]int32{"mode": 0}}),
	)

	DescribeTable("rejected commands",
		func(line string, want error) {
			_, err := shell.Parse(line)
			Expect(err).To(MatchError(want))
		},
		Entry("empty", "", shell.ErrEmpty),
		Entry("blank", "   ", shell.ErrEmpty),
		Entry("unknown verb", "HEAT 100", shell.ErrUnknownVerb),
		Entry("start bad key", "START POWER=3", shell.ErrSyntax),
		Entry("start bad value", "START TARGET=hot", shell.ErrSyntax),
		Entry("start out of range", "START TARGET=99999999999", shell.ErrSyntax),
		Entry("target missing", "TARGET", shell.ErrSyntax),
		Entry("target extra", "TARGET 1 2", shell.ErrSyntax),
		Entry("set empty", "SET", shell.ErrSyntax),
		Entry("set no equals", "SET kp", shell.ErrSyntax),
		Entry("set bad mode", "SET mode=velocity", shell.ErrSyntax),
		Entry("stop with args", "STOP NOW", shell.ErrSyntax),
		Entry("unterminated quote", `SET kp="60`, shell.ErrSyntax),
	)

	It("formats commands back to their canonical line", func() {
		for _, line := range []string{"START TARGET=7000", "STOP", "TARGET 6000", "SET ki=1 kp=50"} {
			cmd, err := shell.Parse(line)
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd.String()).To(Equal(line))
		}
	})
})

var _ = Describe("Feed", func() {
	It("sends parsed commands and reports bad lines", func() {
		input := "START TARGET=7000\n\nBOGUS\nSTOP\n"
		out := make(chan shell.Command, 4)
		var bad []string

		err := shell.Feed(context.Background(), strings.NewReader(input), out, func(line string, err error) {
			bad = append(bad, line)
		})
		Expect(err).NotTo(HaveOccurred())
		close(out)

		var verbs []shell.Verb
		for cmd := range out {
			verbs = append(verbs, cmd.Verb)
		}
		Expect(verbs).To(Equal([]shell.Verb{shell.Start, shell.Stop}))
		Expect(bad).To(ConsistOf("BOGUS"))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out := make(chan shell.Command)

		err := shell.Feed(ctx, strings.NewReader("START\n"), out, nil)
		Expect(err).To(MatchError(context.Canceled))
	})
})
