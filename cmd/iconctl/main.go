package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/spf13/cobra"

	icon "icon-go/core"
	"icon-go/transport"
)

func main() {
	rootCmd := &cobra.Command{Use: "iconctl"}
	rootCmd.PersistentFlags().String("node", "", "node base URL (defaults to the network preset's node)")
	rootCmd.PersistentFlags().String("network", "mainnet", "network id or preset tag")
	rootCmd.PersistentFlags().String("key", "", "signing private key, 32-byte hex")
	rootCmd.PersistentFlags().Bool("debug", false, "target the node's /api/v3d debug endpoint")

	rootCmd.AddCommand(lastBlockCmd())
	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(transferCmd())
	rootCmd.AddCommand(streamCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildIdentity(cmd *cobra.Command) (*icon.Identity, error) {
	node, _ := cmd.Flags().GetString("node")
	network, _ := cmd.Flags().GetString("network")
	key, _ := cmd.Flags().GetString("key")
	debug, _ := cmd.Flags().GetBool("debug")
	return icon.NewIdentity(icon.IdentityOptions{
		Node:       node,
		NetworkID:  network,
		PrivateKey: key,
		Debug:      debug,
	})
}

func printResult(req *icon.Request, result json.RawMessage, err *icon.Error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "icon: %s (code %d)\n", err.Message, err.Code)
		os.Exit(1)
	}
	fmt.Printf("method=%s id=%d result=%s\n", req.Method, req.ID, string(result))
}

func lastBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lastblock",
		Short: "fetch the chain's last block",
		Run: func(cmd *cobra.Command, args []string) {
			id, err := buildIdentity(cmd)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			req, err := icon.GetLastBlock(id)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			t := transport.NewHTTPTransport()
			result, rpcErr := t.Send(context.Background(), req)
			printResult(req, result, rpcErr)
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "fetch an account's balance (defaults to the signing identity's address)",
		Run: func(cmd *cobra.Command, args []string) {
			id, err := buildIdentity(cmd)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			addr := ""
			if len(args) > 0 {
				addr = args[0]
			}
			req, err := icon.GetBalance(id, addr)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			t := transport.NewHTTPTransport()
			result, rpcErr := t.Send(context.Background(), req)
			printResult(req, result, rpcErr)
		},
	}
}

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer [to] [value]",
		Short: "sign and send a value transfer",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := buildIdentity(cmd)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			value, ok := new(big.Int).SetString(args[1], 10)
			if !ok {
				fmt.Fprintln(os.Stderr, "icon: value must be a decimal integer")
				os.Exit(1)
			}
			timeout, _ := cmd.Flags().GetInt("timeout")

			req, err := icon.Transfer(id, args[0], value, timeout)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if err := icon.Sign(req); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			t := transport.NewHTTPTransport()
			result, rpcErr := t.Send(context.Background(), req)
			printResult(req, result, rpcErr)
		},
	}
	cmd.Flags().Int("timeout", 0, "milliseconds to wait for the transaction result (0 = fire-and-forget)")
	return cmd
}

func streamCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stream"}
	cmd.AddCommand(&cobra.Command{
		Use:   "block",
		Short: "subscribe to the block notification stream and print events as they arrive",
		Run: func(cmd *cobra.Command, args []string) {
			id, err := buildIdentity(cmd)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx := context.Background()
			s, err := icon.NewBlockStream(nil, icon.StreamOptions{
				Identity:   id,
				FromHeight: "latest",
				Transport:  transport.NewHTTPTransport(),
				Context:    ctx,
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			driver, err := transport.Dial(ctx, s)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			go func() {
				if err := driver.Run(ctx); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}()

			for {
				events := s.Pop(10)
				for _, ev := range events {
					fmt.Printf("height=%d hash=%s events=%v\n", ev.Height, ev.Hash, ev.Events)
				}
				if len(events) == 0 {
					time.Sleep(200 * time.Millisecond)
				}
			}
		},
	})
	return cmd
}
