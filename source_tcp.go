/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"context"
	"errors"
	"net"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TCPActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "collector",
		Name:      "tcp_active_connections",
		Help:      "Total number of active connections currently maintained by the TCP collector",
	})
	TCPAcceptErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "tcp_accept_errors_total",
		Help:      "Total number of errors encountered accepting TCP connections",
	})
)

// TCPListener accepts IPFIX exporter connections and hands each one off
// to a per-connection handler, mirroring an IPFIX exporter's practice
// of associating one long-lived TCP connection with one session.
type TCPListener struct {
	bindAddr string
	listener *net.TCPListener

	// Handle is called once per accepted connection, in its own
	// goroutine, with an OctetSource wrapping the connection. The
	// default, set by NewTCPListener, drives a fresh MessageParser
	// against a fresh PlacementSink returned by newSink for each
	// connection.
	Handle func(ctx context.Context, source OctetSource, conn net.Conn)
}

// NewTCPListener creates a TCPListener bound to bindAddr. Each accepted
// connection is parsed with a new MessageParser sharing registry, and
// dispatched to a fresh sink obtained from newSink.
func NewTCPListener(bindAddr string, im InfoModel, registry *TemplateRegistry, newSink func(conn net.Conn) PlacementSink) *TCPListener {
	l := &TCPListener{bindAddr: bindAddr}
	l.Handle = func(ctx context.Context, source OctetSource, conn net.Conn) {
		parser := NewMessageParser(im, registry)
		sink := newSink(conn)
		if err := parser.Parse(ctx, source, sink); err != nil && !errors.Is(err, ErrAbortedByUser) {
			FromContext(ctx).Error(err, "tcp session ended", "remote_addr", conn.RemoteAddr().String())
		}
	}
	return l
}

// Listen binds and accepts connections until ctx is done.
func (l *TCPListener) Listen(ctx context.Context) error {
	logger := FromContext(ctx)

	addr, err := net.ResolveTCPAddr("tcp", l.bindAddr)
	if err != nil {
		return err
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}
	l.listener = ln
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info("started TCP listener", "addr", l.bindAddr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			TCPAcceptErrorsTotal.Inc()
			logger.Error(err, "failed to accept TCP connection")
			continue
		}

		TCPActiveConnections.Inc()
		go func(conn net.Conn) {
			defer TCPActiveConnections.Dec()
			defer conn.Close()
			l.Handle(ctx, NewReaderSource(conn), conn)
		}(conn)
	}
}
