// Package transport implements the UDP DNS listener of §6: a plain
// net.ListenUDP socket read by a small pool of goroutines, which hand
// each packet to its own goroutine that decodes the request, asks the
// resolver for an answer, and writes the encoded reply back to the
// source address.
package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clusterdns/zoned/internal/metrics"
	"github.com/clusterdns/zoned/internal/pool"
	"github.com/clusterdns/zoned/internal/resolver"
	"github.com/clusterdns/zoned/internal/wire"
)

// Config holds configuration for the UDP DNS server.
type Config struct {
	Addr     string // e.g. ":53"
	Workers  int    // reader goroutines sharing one socket
	Resolver *resolver.Resolver
	Log      *logrus.Logger
}

// Stats holds the listener's atomic packet and error counters. They are
// plain fields on Server; internal/metrics does not read them.
type Stats struct {
	PacketsRecv atomic.Uint64
	PacketsSent atomic.Uint64
	DecodeErrs  atomic.Uint64
	EncodeErrs  atomic.Uint64
}

// Server is the UDP authoritative DNS listener.
type Server struct {
	mu sync.Mutex

	addr     string
	workers  int
	resolver *resolver.Resolver
	log      *logrus.Logger

	conn    *net.UDPConn
	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	Stats Stats
}

// NewServer creates a UDP server. Workers defaults to 4 if unset.
func NewServer(cfg Config) *Server {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		addr:     cfg.Addr,
		workers:  workers,
		resolver: cfg.Resolver,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start binds the UDP socket and launches the reader pool.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	conn.SetReadBuffer(4 * 1024 * 1024)
	conn.SetWriteBuffer(4 * 1024 * 1024)

	s.conn = conn
	s.running = true

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.readLoop()
	}

	s.log.WithFields(logrus.Fields{"addr": s.addr, "workers": s.workers}).Info("udp listener started")
	return nil
}

// Stop closes the socket and waits for in-flight readers to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.done)
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	s.wg.Wait()
	return nil
}

func (s *Server) readLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		buf := pool.GetLargeBuffer()
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			pool.PutLargeBuffer(buf)
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		packet := append([]byte(nil), buf[:n]...)
		pool.PutLargeBuffer(buf)
		s.Stats.PacketsRecv.Add(1)

		go s.handlePacket(packet, addr)
	}
}

func (s *Server) handlePacket(packet []byte, addr *net.UDPAddr) {
	start := time.Now()

	req, err := wire.Decode(packet)
	if err != nil {
		s.Stats.DecodeErrs.Add(1)
		s.log.WithError(err).Debug("dropping malformed query")
		return
	}

	resp := s.resolver.Resolve(context.Background(), req)
	metrics.DNSQueryDuration.Observe(time.Since(start).Seconds())
	metrics.DNSQueries.WithLabelValues(strconv.Itoa(int(resp.Header.Rcode))).Inc()

	out, err := wire.Encode(resp)
	if err != nil {
		s.Stats.EncodeErrs.Add(1)
		s.log.WithError(err).Debug("dropping unencodable response")
		return
	}

	if _, err := s.conn.WriteToUDP(out, addr); err != nil {
		s.log.WithError(err).Debug("write to client failed")
		return
	}
	s.Stats.PacketsSent.Add(1)
}
