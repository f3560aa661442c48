// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Aura Net Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package announce

import (
	"net"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/miekg/dns"

	"github.com/aura-net/aurad/fault"
)

const (
	timeInterval = 1 * time.Hour // time interval for re-fetching witness domain
	resolvConf   = "/etc/resolv.conf"
)

// Lookuper - interface to lookup DNS records
type Lookuper interface {
	Lookup(domainName string) ([]Entry, error)
}

type lookuper struct {
	log *logger.L
	f   func(string) ([]string, error)
}

// NewLookuper - lookuper over a TXT query function
//
// pass net.LookupTXT outside of tests
func NewLookuper(log *logger.L, f func(string) ([]string, error)) Lookuper {
	return &lookuper{
		log: log,
		f:   f,
	}
}

// Lookup - query and parse the TXT records of a witness domain
func (l *lookuper) Lookup(domainName string) ([]Entry, error) {
	log := l.log
	if "" == domainName {
		log.Error("invalid witness domain")
		return nil, fault.InvalidWitnessDomain
	}

	texts, err := l.f(domainName)
	if nil != err {
		log.Errorf("lookup TXT record error: %s", err)
		return nil, err
	}

	result := make([]Entry, 0, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		entry, err := parseTxt(t)
		if nil != err {
			log.Debugf("ignore TXT[%d]: %q  error: %s", i, t, err)
			continue
		}
		log.Infof("process TXT[%d]: %q", i, t)
		log.Infof("result[%d]: namespace: %s  endpoint: %s  threshold: %d", i, entry.Namespace, entry.Endpoint, entry.Threshold)
		log.Debugf("result[%d]: witness public key: %x", i, entry.PublicKey)
		result = append(result, *entry)
	}
	return result, nil
}

// get interval time for re-fetching the witness domain TXT records
//
// uses the SOA TTL when it is shorter than the default interval
func intervalTime(domain string, log *logger.L) time.Duration {

	t := timeInterval

	conf, err := dns.ClientConfigFromFile(resolvConf)
	if nil != err {
		log.Errorf("reading %s error: %s", resolvConf, err)
		return t
	}

	if 0 == len(conf.Servers) {
		log.Errorf("cannot get dns name server")
		return t
	}

	server := net.JoinHostPort(conf.Servers[0], conf.Port) // use the first dns name server
	log.Debugf("DNS name server: %s", server)
	c := dns.Client{}
	msg := dns.Msg{}
	msg.SetQuestion(domain+".", dns.TypeSOA)

	r, _, err := c.Exchange(&msg, server)
	if nil != err {
		log.Errorf("exchange with dns server error: %s", err)
		return t
	}

	if 0 == len(r.Ns) {
		log.Errorf("dns response has no authority section")
		return t
	}

	for _, ns := range r.Ns {
		if a, ok := ns.(*dns.SOA); ok {
			ttl := a.Hdr.Ttl
			if 0 < ttl {
				log.Infof("TTL record: %d", ttl)
				ttlSec := time.Duration(ttl) * time.Second
				if timeInterval > ttlSec {
					t = ttlSec
				}
			}
		}
	}

	log.Infof("time to re-fetch witness domain: %v", t)
	return t
}
