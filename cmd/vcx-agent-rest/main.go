/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcx-agent-rest (VCX Agent REST Server) runs one VCX institution agent behind a REST
// controller. The agent owns a wallet, a pool connection and a cloud agency mailbox; the routes
// under /vcx drive its connections, credential and proof exchanges. State changes are pushed to
// websocket clients and webhook subscribers.
//
//
// Terms Of Service:
//
//
//     Schemes: https
//     Version: 0.1.0
//     License: SPDX-License-Identifier: Apache-2.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
// swagger:meta
package main

import (
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-vcx-go/cmd/vcx-agent-rest/startcmd"
)

var logger = log.New("vcx/agent-rest")

func main() {
	rootCmd, err := newRootCmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf("Failed to build vcx-agent-rest: %s", err)
	}

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run vcx-agent-rest: %s", err)
	}
}

// newRootCmd returns the command tree of the agent. Without a subcommand it prints the help.
func newRootCmd(server startcmd.Server) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "vcx-agent-rest",
		Short: "VCX institution agent with a REST controller",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	startCmd, err := startcmd.Cmd(server)
	if err != nil {
		return nil, err
	}

	rootCmd.AddCommand(startCmd)

	return rootCmd, nil
}
