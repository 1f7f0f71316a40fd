package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	dtpproxy "github.com/project-faster/dtp-go/integrationtests/tools/proxy"
	"github.com/project-faster/dtp-go/internal/utils"
)

var (
	listenAddr string
	remoteAddr string
	dropEvery  uint64
	delay      time.Duration
	delayEvery uint64
	verbose    bool
)

func init() {
	rootCmd.Flags().StringVarP(&listenAddr, "listen", "l", "localhost:4433", "UDP address to listen on")
	rootCmd.Flags().StringVarP(&remoteAddr, "remote", "r", "", "UDP address to forward packets to")
	rootCmd.Flags().Uint64Var(&dropEvery, "drop-every", 0, "drop every nth packet (0 disables dropping)")
	rootCmd.Flags().DurationVar(&delay, "delay", 0, "delay to apply to packets (0 disables delaying)")
	rootCmd.Flags().Uint64Var(&delayEvery, "delay-every", 0, "delay only every nth packet (0 delays all packets)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	// nolint:errcheck
	rootCmd.MarkFlagRequired("remote")
}

// rootCmd is the main command for the 'dtp-proxy' binary.
var rootCmd = &cobra.Command{
	Use:   "dtp-proxy",
	Short: "dtp-proxy forwards datagrams and can drop or delay them on the way",
	Long: "dtp-proxy forwards datagrams between a DTP sender and a DTP receiver. " +
		"It can drop or delay packets in both directions, to exercise the " +
		"receiver's reordering and retransmission handling on an otherwise " +
		"reliable link.",
	Run: func(cmd *cobra.Command, args []string) {
		if verbose {
			utils.DefaultLogger.SetLogLevel(utils.LogLevelDebug)
		}

		opts := &dtpproxy.Opts{RemoteAddr: remoteAddr}
		if dropEvery != 0 {
			opts.DropPacket = func(_ dtpproxy.Direction, p uint64) bool {
				return p%dropEvery == 0
			}
		}
		if delay != 0 {
			opts.DelayPacket = func(_ dtpproxy.Direction, p uint64) time.Duration {
				if delayEvery != 0 && p%delayEvery != 0 {
					return 0
				}
				return delay
			}
		}

		proxy, err := dtpproxy.NewDTPProxy(listenAddr, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start proxy: %v\n", err)
			os.Exit(1)
		}
		defer proxy.Close()
		fmt.Printf("forwarding %s <-> %s\n", proxy.LocalAddr(), remoteAddr)

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
