// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/announce"
	"github.com/aura-net/aurad/background"
	"github.com/aura-net/aurad/consensus"
	"github.com/aura-net/aurad/crypto"
	"github.com/aura-net/aurad/gossip"
	"github.com/aura-net/aurad/guard"
	"github.com/aura-net/aurad/messagebus"
	"github.com/aura-net/aurad/namespace"
	"github.com/aura-net/aurad/peer"
	"github.com/aura-net/aurad/storage"
	"github.com/aura-net/aurad/transport"
)

// runStart - assemble and run the node
func runStart(c *cli.Context) error {

	options, err := getConfiguration(c)
	if nil != err {
		return err
	}
	quiet := c.GlobalBool("quiet")

	// start logging
	if err := logger.Initialise(options.Logging); nil != err {
		return fmt.Errorf("logger setup failed with error: %s", err)
	}
	defer logger.Finalise()

	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != options.PidFile {
		lockFile, err := os.OpenFile(options.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if nil != err {
			if os.IsExist(err) {
				return fmt.Errorf("another instance is already running")
			}
			return fmt.Errorf("PID file: %q creation failed, error: %s", options.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(options.PidFile)
	}

	ns, err := namespace.FromString(options.Namespace)
	if nil != err {
		log.Criticalf("bad namespace: %q  error: %s", options.Namespace, err)
		return err
	}

	// signing identity
	signer, err := crypto.ReadSeedFile(options.SeedFile)
	if nil != err {
		log.Criticalf("seed file: %q  error: %s", options.SeedFile, err)
		return err
	}
	author := namespace.ID{}
	copy(author[:], signer.PublicKey())

	// fact store
	log.Info("initialise storage")
	store, err := storage.Open(filepath.Join(options.Database.Directory, options.Database.Name))
	if nil != err {
		log.Criticalf("storage error: %s", err)
		return err
	}
	defer store.Close()

	journals := newJournalSet(store)
	j, err := journals.Journal(ns)
	if nil != err {
		log.Criticalf("journal load error: %s", err)
		return err
	}
	log.Infof("namespace: %s  facts: %d", ns, j.Size())

	// witness socket credentials
	publicKey, err := transport.ReadKeyFile(options.Transport.PublicKeyFile)
	if nil != err {
		log.Criticalf("public key file: %q  error: %s", options.Transport.PublicKeyFile, err)
		return err
	}
	privateKey, err := transport.ReadKeyFile(options.Transport.PrivateKeyFile)
	if nil != err {
		log.Criticalf("private key file: %q  error: %s", options.Transport.PrivateKeyFile, err)
		return err
	}

	client, err := transport.NewClient(privateKey, publicKey, 0)
	if nil != err {
		log.Criticalf("transport client error: %s", err)
		return err
	}
	defer client.Close()

	// request socket: witness execution plus fact fetches
	witness, err := consensus.NewWitness(signer, j, nil)
	if nil != err {
		log.Criticalf("witness error: %s", err)
		return err
	}
	fetcher, err := peer.NewHandler(journals)
	if nil != err {
		log.Criticalf("peer handler error: %s", err)
		return err
	}
	handler := func(payload []byte) []byte {
		if peer.IsFetch(payload) {
			return fetcher.HandleRequest(payload)
		}
		return witness.HandleRequest(payload)
	}

	server, err := transport.NewServer(options.Transport.Listen, privateKey, publicKey, handler)
	if nil != err {
		log.Criticalf("transport server error: %s", err)
		return err
	}

	// gossip mesh
	node, err := gossip.NewNode(options.Gossip.Listen, options.Gossip.Identity)
	if nil != err {
		log.Criticalf("gossip error: %s", err)
		return err
	}
	defer node.Stop()
	log.Infof("gossip identity: %s", node.ID())
	for _, address := range options.Gossip.Connect {
		if err := node.Connect(address); nil != err {
			log.Warnf("gossip connect: %q  error: %s", address, err)
		}
	}

	// fan received payloads out to the right queue
	bus := messagebus.New()
	err = node.Join(ns, func(payload []byte) error {
		if peer.IsInventory(payload) {
			bus.Sync.Send("inventory", payload)
		} else {
			bus.Commit.Send("consensus", payload)
		}
		return nil
	})
	if nil != err {
		log.Criticalf("gossip join error: %s", err)
		return err
	}

	// witness directory
	table := announce.NewTable()
	if 0 != len(options.Announce.Static) {
		entries := make([]announce.Entry, 0, len(options.Announce.Static))
		for _, record := range options.Announce.Static {
			entry, err := announce.ParseEntry(record)
			if nil != err {
				log.Criticalf("static witness: %q  error: %s", record, err)
				return err
			}
			entries = append(entries, entry)
		}
		announce.Populate(table, log, entries)
	}
	processes := background.Processes{server}
	if "" != options.Announce.Domain {
		refresher, err := announce.NewRefresher(options.Announce.Domain, table, announce.NewLookuper(log, net.LookupTXT))
		if nil != err {
			log.Criticalf("announce error: %s", err)
			return err
		}
		processes = append(processes, refresher)
	}

	// consensus
	coordinator, err := consensus.NewCoordinator(consensus.Config{
		Author:     author,
		Signer:     signer,
		Journals:   journals,
		Store:      store,
		Transport:  client,
		Directory:  table,
		Publisher:  node,
		Timeout:    time.Duration(options.Consensus.TimeoutSeconds) * time.Second,
		RetryLimit: options.Consensus.RetryLimit,
	})
	if nil != err {
		log.Criticalf("consensus error: %s", err)
		return err
	}
	processes = append(processes, coordinator.NewReaper())

	// anti-entropy
	syncer, err := peer.NewSyncer(journals, store, client, publicKey)
	if nil != err {
		log.Criticalf("syncer error: %s", err)
		return err
	}
	announcer, err := peer.NewAnnouncer(ns, options.Transport.Listen, publicKey, journals, node)
	if nil != err {
		log.Criticalf("announcer error: %s", err)
		return err
	}
	processes = append(processes, announcer, &dispatcher{
		bus:         bus,
		coordinator: coordinator,
		syncer:      syncer,
		log:         logger.New("dispatcher"),
	})

	// guard chain for locally originated operations
	chain, err := guard.NewChain(guard.ChainConfig{
		Author:           author,
		Authorizer:       newStaticAuthorizer(options.Guard.Tokens),
		Limits:           newConfiguredLimits(options.Guard),
		Journal:          j,
		Store:            store,
		Transport:        client,
		LegacyPermissive: options.Guard.LegacyPermissive,
	})
	if nil != err {
		log.Criticalf("guard error: %s", err)
		return err
	}
	if 0 != len(options.Guard.Tokens) {
		processes = append(processes, &snapshotter{
			log:     logger.New("snapshot"),
			journal: j,
			chain:   chain,
			author:  author,
			token:   []byte(options.Guard.Tokens[0]),
		})
	}

	bg := background.Start(processes, nil)
	defer bg.Stop()

	// wait for CTRL-C before shutting down to allow manual testing
	if !quiet {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if !quiet {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
	return nil
}
