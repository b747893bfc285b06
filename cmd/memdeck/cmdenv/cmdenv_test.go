package cmdenv_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/memory"
)

func newCmd(configDir string) (*cobra.Command, *string) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", configDir, "")
	cmd.Flags().Bool("debug", false, "")
	var target string
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTarget, &target)
	return cmd, &target
}

var _ = Describe("Load", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("layers config file under flags", func() {
		data := "[service]\ntarget = \"http://file:8000\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		cmd, _ := newCmd(tmpDir)
		env, err := cmdenv.Load(cmd, config.FlagServiceTarget)
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Viper.GetString("service.target")).To(Equal("http://file:8000"))

		cmd, _ = newCmd(tmpDir)
		Expect(cmd.Flags().Set("target", "http://flag:8000")).To(Succeed())
		env, err = cmdenv.Load(cmd, config.FlagServiceTarget)
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Viper.GetString("service.target")).To(Equal("http://flag:8000"))
	})

	It("builds core options for the calling surface", func() {
		cmd, _ := newCmd(tmpDir)
		env, err := cmdenv.Load(cmd)
		Expect(err).NotTo(HaveOccurred())

		opts, err := env.Options("cli", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.Client).To(Equal("cli"))
		Expect(opts.Target).To(Equal(config.NewDefaultConfig().Service.Target))
	})

	It("tees logs into a JSON log file", func() {
		cmd, _ := newCmd(tmpDir)
		env, err := cmdenv.Load(cmd)
		Expect(err).NotTo(HaveOccurred())

		var console bytes.Buffer
		logPath := filepath.Join(tmpDir, "memdeck.log")
		log, err := env.Logger(&console, logPath)
		Expect(err).NotTo(HaveOccurred())

		log.Info("hello", "id", "m1")
		Expect(env.Close()).To(Succeed())

		Expect(console.String()).To(ContainSubstring("hello"))
		data, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"hello"`))
		Expect(string(data)).To(ContainSubstring(`"id":"m1"`))
	})
})

var _ = Describe("UserError", func() {
	It("shows the friendly message and keeps the chain", func() {
		err := cmdenv.UserError(&memory.NotFoundError{ID: "m1"})
		Expect(err.Error()).To(Equal("Memory not found. It may already have been deleted."))
		Expect(memory.IsNotFound(err)).To(BeTrue())
	})

	It("keeps transport detail", func() {
		err := cmdenv.UserError(&memory.TransportError{Op: "list memories", Err: errors.New("connection refused")})
		Expect(err.Error()).To(HavePrefix("Could not reach the memory service."))
		Expect(err.Error()).To(ContainSubstring("connection refused"))
	})

	It("passes nil through", func() {
		Expect(cmdenv.UserError(nil)).To(BeNil())
	})
})
