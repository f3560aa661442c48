// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/logger"

	"github.com/aura-net/aurad/fact"
	"github.com/aura-net/aurad/fault"
	"github.com/aura-net/aurad/journal"
	"github.com/aura-net/aurad/namespace"
)

// key prefixes
const (
	tagFact = 'F' // tagFact ++ namespace ++ fact id -> packed fact
)

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

const currentDBVersion = 0x100

// durable writes: a saved journal survives a crash
var syncWrite = &ldb_opt.WriteOptions{Sync: true}

// Store - journal persistence on a single LevelDB database
type Store struct {
	sync.RWMutex
	database *leveldb.DB
	log      *logger.L
}

// Open - open or create the fact database
func Open(directory string) (*Store, error) {

	log := logger.New("storage")

	db, err := leveldb.OpenFile(directory, nil)
	if nil != err {
		return nil, err
	}

	store := &Store{
		database: db,
		log:      log,
	}

	version, err := store.version()
	if nil != err {
		db.Close()
		return nil, err
	}

	switch {
	case 0 == version:
		// fresh database
		if err := store.setVersion(currentDBVersion); nil != err {
			db.Close()
			return nil, err
		}
	case currentDBVersion == version:
		// up to date
	default:
		// ensure no database downgrade
		log.Criticalf("database version: %d  current version: %d", version, currentDBVersion)
		db.Close()
		return nil, fault.ProcessError("storage: incompatible database version")
	}

	log.Infof("opened fact database: %s", directory)
	return store, nil
}

// Close - flush and close the database
func (s *Store) Close() error {
	s.Lock()
	defer s.Unlock()

	if nil == s.database {
		return fault.NotInitialised
	}
	err := s.database.Close()
	s.database = nil
	return err
}

func (s *Store) version() (int, error) {
	value, err := s.database.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		return 0, nil
	}
	if nil != err {
		return 0, err
	}
	if 4 != len(value) {
		return 0, fault.ProcessError("storage: corrupt version record")
	}
	return int(binary.BigEndian.Uint32(value)), nil
}

func (s *Store) setVersion(version int) error {
	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, uint32(version))
	return s.database.Put(versionKey, value, syncWrite)
}

// factKey - tagFact ++ packed namespace ++ fact id
func factKey(ns namespace.Namespace, id fact.Digest) []byte {
	key := make([]byte, 0, 1+namespace.PackedSize+len(id))
	key = append(key, tagFact)
	key = append(key, ns.Pack()...)
	return append(key, id[:]...)
}

// namespacePrefix - iteration range covering one namespace
func namespacePrefix(ns namespace.Namespace) *ldb_util.Range {
	prefix := make([]byte, 0, 1+namespace.PackedSize)
	prefix = append(prefix, tagFact)
	prefix = append(prefix, ns.Pack()...)
	return ldb_util.BytesPrefix(prefix)
}

// LoadJournal - rebuild a journal from its stored facts
//
// an empty namespace loads as an empty journal, not an error
func (s *Store) LoadJournal(ns namespace.Namespace) (*journal.Journal, error) {
	s.RLock()
	defer s.RUnlock()

	if nil == s.database {
		return nil, fault.NotInitialised
	}

	j, err := journal.New(ns, s.log)
	if nil != err {
		return nil, err
	}

	iter := s.database.NewIterator(namespacePrefix(ns), nil)
	defer iter.Release()

	count := 0
	for iter.Next() {
		f, err := fact.UnpackFact(iter.Value())
		if nil != err {
			s.log.Errorf("corrupt stored fact: key: %x  error: %s", iter.Key(), err)
			return nil, err
		}
		if err := j.AddFact(f); nil != err {
			return nil, err
		}
		count += 1
	}
	if err := iter.Error(); nil != err {
		return nil, err
	}

	s.log.Debugf("loaded journal: %s  facts: %d", ns, count)
	return j, nil
}

// SaveJournal - persist every fact of a journal
//
// facts already stored are overwritten with identical bytes, so the
// write is idempotent; the batch is synced before returning
func (s *Store) SaveJournal(ns namespace.Namespace, j *journal.Journal) error {
	s.RLock()
	defer s.RUnlock()

	if nil == s.database {
		return fault.NotInitialised
	}
	if ns != j.Namespace() {
		return fault.NamespaceMismatch
	}

	batch := new(leveldb.Batch)
	facts := j.Facts()
	for _, f := range facts {
		batch.Put(factKey(ns, f.ID()), f.Pack())
	}

	if err := s.database.Write(batch, syncWrite); nil != err {
		return err
	}

	s.log.Debugf("saved journal: %s  facts: %d", ns, len(facts))
	return nil
}
