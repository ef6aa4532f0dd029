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
	"io"
	"net"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"
)

var (
	// UDPPacketBufferSize bounds the size of a single read off the UDP
	// socket. IPFIX message length is itself capped at 65535 octets by
	// its 16-bit length field, but in practice exporters stay well
	// under the path MTU to avoid IP fragmentation; 1500 covers a
	// typical Ethernet MTU's payload after header overhead.
	UDPPacketBufferSize = 1500

	UDPReceivedPacketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "udp_received_packets_total",
		Help:      "Total number of UDP packets received by the UDP collector",
	})
	UDPReadErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "udp_read_errors_total",
		Help:      "Total number of errors encountered reading from the UDP socket",
	})
)

// UDPListener receives IPFIX messages carried one-or-more-per datagram
// over UDP. Because UDP has no connection concept, each remote address
// is treated as its own observation session: a MessageParser and sink
// are created for it lazily and reused for subsequent packets from the
// same address until a parse error ends that address's session, after
// which the next packet from it starts a new one.
type UDPListener struct {
	bindAddr string
	im       InfoModel
	registry *TemplateRegistry
	newSink  func(addr net.Addr) PlacementSink

	conn net.PacketConn
}

// NewUDPListener creates a UDPListener bound to bindAddr.
func NewUDPListener(bindAddr string, im InfoModel, registry *TemplateRegistry, newSink func(addr net.Addr) PlacementSink) *UDPListener {
	return &UDPListener{bindAddr: bindAddr, im: im, registry: registry, newSink: newSink}
}

// Listen binds the UDP socket, with SO_REUSEADDR/SO_REUSEPORT set so
// multiple processes can load-balance the same collection address, and
// reads packets until ctx is done.
func (l *UDPListener) Listen(ctx context.Context) error {
	logger := FromContext(ctx)

	listenConfig := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				if ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); ctrlErr != nil {
					return
				}
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}

	conn, err := listenConfig.ListenPacket(ctx, "udp", l.bindAddr)
	if err != nil {
		logger.Error(err, "failed to bind UDP listener", "addr", l.bindAddr)
		return err
	}
	l.conn = conn
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	parsers := make(map[string]*MessageParser)
	sinks := make(map[string]PlacementSink)

	buf := make([]byte, UDPPacketBufferSize)
	logger.Info("started UDP listener", "addr", l.bindAddr)

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			UDPReadErrorsTotal.Inc()
			logger.Error(err, "failed to read UDP packet")
			continue
		}
		UDPReceivedPacketsTotal.Inc()

		key := addr.String()
		parser, ok := parsers[key]
		if !ok {
			parser = NewMessageParser(l.im, l.registry)
			parsers[key] = parser
			sink := l.newSink(addr)
			sinks[key] = sink
			if err := sink.StartSession(ctx); err != nil {
				logger.Error(err, "udp sink refused new session", "remote_addr", key)
				delete(parsers, key)
				delete(sinks, key)
				continue
			}
		}
		sink := sinks[key]

		packet := make([]byte, n)
		copy(packet, buf[:n])
		packetSource := NewBufferSource(packet)

		for {
			perr := parser.ParseMessage(ctx, packetSource, sink)
			if perr != nil {
				if perr != io.EOF {
					logger.Error(perr, "udp session ended", "remote_addr", key)
					sink.EndSession(ctx, perr)
					delete(parsers, key)
					delete(sinks, key)
				}
				break
			}
		}
	}
}
