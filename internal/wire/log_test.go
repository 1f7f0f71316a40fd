package wire

import (
	"bytes"
	"log"
	"os"

	"github.com/project-faster/dtp-go/internal/utils"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Fragment header logging", func() {
	var (
		logger utils.Logger
		buf    *bytes.Buffer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		logger = utils.DefaultLogger
		logger.SetLogLevel(utils.LogLevelDebug)
		log.SetOutput(buf)
	})

	AfterEach(func() {
		logger.SetLogLevel(utils.LogLevelNothing)
		log.SetOutput(os.Stdout)
	})

	It("doesn't log when debug is disabled", func() {
		logger.SetLogLevel(utils.LogLevelInfo)
		LogFragHeader(logger, &FragHeader{Cmd: FragCommandAck}, true)
		Expect(buf.Len()).To(BeZero())
	})

	It("logs sent push fragments", func() {
		LogFragHeader(logger, &FragHeader{Cmd: FragCommandPush, Seq: 0x42, Len: 0x100}, true)
		Expect(buf.Bytes()).To(ContainSubstring("\t-> &wire.FragHeader{Cmd: Push, Seq: 0x42, Len: 0x100}\n"))
	})

	It("logs received ack fragments", func() {
		LogFragHeader(logger, &FragHeader{Cmd: FragCommandAck, Seq: 0x1337}, false)
		Expect(buf.Bytes()).To(ContainSubstring("\t<- &wire.FragHeader{Cmd: Ack, Seq: 0x1337}\n"))
	})

	It("dumps unknown commands", func() {
		LogFragHeader(logger, &FragHeader{Cmd: 0x42, Seq: 1}, false)
		Expect(buf.Bytes()).To(ContainSubstring("wire.FragHeader"))
	})
})
