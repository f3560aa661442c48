// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/exitwithstatus"

	"github.com/aura-net/aurad/configuration"
	"github.com/aura-net/aurad/crypto"
	"github.com/aura-net/aurad/gossip"
	"github.com/aura-net/aurad/transport"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	app := cli.NewApp()
	app.Name = "aurad"
	app.Usage = "identity journal and witness daemon"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config-file, c",
			Value: "",
			Usage: "*configuration `FILE`",
		},
		cli.BoolFlag{
			Name:  "quiet, q",
			Usage: " suppress console messages",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "start",
			Usage:  "run the daemon",
			Action: runStart,
		},
		{
			Name:   "gen-transport-keys",
			Usage:  "generate the witness socket CURVE key pair",
			Action: runGenTransportKeys,
		},
		{
			Name:   "gen-gossip-identity",
			Usage:  "generate the gossip host identity and print it",
			Action: runGenGossipIdentity,
		},
		{
			Name:   "gen-seed",
			Usage:  "generate the signing seed file",
			Action: runGenSeed,
		},
		{
			Name:  "version",
			Usage: "display aurad version",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(c.App.Writer, "%s\n", version)
				return nil
			},
		},
	}

	// default to the daemon
	app.Action = runStart

	if err := app.Run(os.Args); nil != err {
		exitwithstatus.Message("%s: terminated with error: %s", app.Name, err)
	}
}

// read the configuration named by the global flag
func getConfiguration(c *cli.Context) (*configuration.Configuration, error) {
	fileName := c.GlobalString("config-file")
	if "" == fileName {
		return nil, fmt.Errorf("missing config-file argument")
	}
	return configuration.GetConfiguration(fileName)
}

func runGenTransportKeys(c *cli.Context) error {
	options, err := getConfiguration(c)
	if nil != err {
		return err
	}
	err = transport.MakeKeyPair(options.Transport.PublicKeyFile, options.Transport.PrivateKeyFile)
	if nil != err {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created: %s\ncreated: %s\n",
		options.Transport.PublicKeyFile, options.Transport.PrivateKeyFile)
	return nil
}

func runGenGossipIdentity(c *cli.Context) error {
	identity, err := gossip.MakeIdentity()
	if nil != err {
		return err
	}
	// paste into the gossip.identity configuration item
	fmt.Fprintf(c.App.Writer, "%s\n", identity)
	return nil
}

func runGenSeed(c *cli.Context) error {
	options, err := getConfiguration(c)
	if nil != err {
		return err
	}
	if err := crypto.MakeSeedFile(options.SeedFile); nil != err {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created: %s\n", options.SeedFile)
	return nil
}
