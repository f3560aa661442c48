// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/fault"
)

// basic defaults (directories and files are relative to the
// "data_directory" from the configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultPublicKeyFile  = "witness.public"
	defaultPrivateKeyFile = "witness.private"
	defaultSeedFile       = "signing.seed"

	defaultLevelDBDirectory = "data"
	defaultDatabase         = "aura.leveldb"

	defaultLogDirectory = "log"
	defaultLogFile      = "aurad.log"
	defaultLogCount     = 10          // number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// to hold log levels
type LoglevelMap map[string]string

var defaultLogLevels = LoglevelMap{
	logger.DefaultTag: "critical",
}

// TransportType - witness round trip endpoints and credentials
type TransportType struct {
	Listen         string `gluamapper:"listen" json:"listen"`
	PublicKeyFile  string `gluamapper:"public_key_file" json:"public_key_file"`
	PrivateKeyFile string `gluamapper:"private_key_file" json:"private_key_file"`
}

// GossipType - libp2p host settings
type GossipType struct {
	Listen   []string `gluamapper:"listen" json:"listen"`
	Identity string   `gluamapper:"identity" json:"identity"`
	Connect  []string `gluamapper:"connect" json:"connect"`
}

// AnnounceType - witness directory bootstrap
//
// static entries use the TXT record format:
//
//	aura=v1 n=<NAMESPACE> e=<ENDPOINT> k=<HEX-ED25519-KEY> t=<THRESHOLD>
type AnnounceType struct {
	Domain string   `gluamapper:"domain" json:"domain"`
	Static []string `gluamapper:"static" json:"static"`
}

// GuardType - budget limits and locally accepted tokens
type GuardType struct {
	FlowLimit        uint64            `gluamapper:"flow_limit" json:"flow_limit"`
	LeakageLimits    map[string]uint64 `gluamapper:"leakage_limits" json:"leakage_limits"`
	LegacyPermissive bool              `gluamapper:"legacy_permissive" json:"legacy_permissive"`
	Tokens           []string          `gluamapper:"tokens" json:"tokens"`
}

// ConsensusType - instance timing
type ConsensusType struct {
	TimeoutSeconds uint64 `gluamapper:"timeout_seconds" json:"timeout_seconds"`
	RetryLimit     int    `gluamapper:"retry_limit" json:"retry_limit"`
}

// DatabaseType - fact store location
type DatabaseType struct {
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
}

// Configuration - the daemon configuration
type Configuration struct {
	DataDirectory string               `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string               `gluamapper:"pidfile" json:"pidfile"`
	Namespace     string               `gluamapper:"namespace" json:"namespace"`
	SeedFile      string               `gluamapper:"seed_file" json:"seed_file"`
	Database      DatabaseType         `gluamapper:"database" json:"database"`
	Transport     TransportType        `gluamapper:"transport" json:"transport"`
	Gossip        GossipType           `gluamapper:"gossip" json:"gossip"`
	Announce      AnnounceType         `gluamapper:"announce" json:"announce"`
	Guard         GuardType            `gluamapper:"guard" json:"guard"`
	Consensus     ConsensusType        `gluamapper:"consensus" json:"consensus"`
	Logging       logger.Configuration `gluamapper:"logging" json:"logging"`
}

// GetConfiguration - read and validate the configuration file
func GetConfiguration(fileName string) (*Configuration, error) {

	fileName, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(fileName)

	options := &Configuration{
		DataDirectory: defaultDataDirectory,

		Database: DatabaseType{
			Directory: defaultLevelDBDirectory,
			Name:      defaultDatabase,
		},

		Transport: TransportType{
			PublicKeyFile:  defaultPublicKeyFile,
			PrivateKeyFile: defaultPrivateKeyFile,
		},

		SeedFile: defaultSeedFile,

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(fileName, options); nil != err {
		return nil, err
	}

	// if any test mode and the database file was not specified
	// switch to use the test name
	if "" == options.DataDirectory {
		return nil, fault.InvalidError("data_directory cannot be empty")
	}
	if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory
	} else {
		options.DataDirectory, err = filepath.Abs(filepath.Clean(options.DataDirectory))
		if nil != err {
			return nil, err
		}
	}

	// ensure the data directory exists
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fault.InvalidError("not a directory: " + options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Database.Directory,
		&options.Transport.PublicKeyFile,
		&options.Transport.PrivateKeyFile,
		&options.SeedFile,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = ensureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths cannot be blank
	optionalAbsolute := []*string{
		&options.PidFile,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = ensureAbsolute(options.DataDirectory, *f)
		}
	}

	if "" == options.Namespace {
		return nil, fault.InvalidNamespace
	}

	return options, nil
}

// ensureAbsolute - ensure the path is absolute
func ensureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}
