// Command zonedctl is a small UDP DNS client for exercising a zoned
// instance: a single query mode for ad-hoc lookups and a throughput
// benchmark mode for load testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"

	"github.com/clusterdns/zoned/internal/wire"
)

var (
	mode     = flag.String("mode", "query", "query or bench")
	target   = flag.String("target", "127.0.0.1:53", "DNS server address")
	domain   = flag.String("domain", "example.test.", "Domain to query")
	qtype    = flag.String("type", "A", "Record type to query")
	workers  = flag.Int("workers", 10, "Concurrent workers (bench mode)")
	duration = flag.Duration("duration", 10*time.Second, "Test duration (bench mode)")
)

func main() {
	flag.Parse()

	typeCode, ok := dns.StringToType[*qtype]
	if !ok {
		log.Fatalf("unknown record type %q", *qtype)
	}

	switch *mode {
	case "query":
		runQuery(typeCode)
	case "bench":
		runBench(typeCode)
	default:
		log.Fatalf("unknown mode %q, want query or bench", *mode)
	}
}

func buildQuery(id uint16, name string, typeCode uint16) ([]byte, error) {
	return wire.Encode(&wire.Message{
		Header:   wire.Header{ID: id, RD: true},
		Question: []wire.Question{{Name: name, Type: typeCode, Class: 1}},
	})
}

func runQuery(typeCode uint16) {
	req, err := buildQuery(1, *domain, typeCode)
	if err != nil {
		log.Fatalf("building query: %v", err)
	}

	conn, err := net.Dial("udp", *target)
	if err != nil {
		log.Fatalf("dial %s: %v", *target, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(req); err != nil {
		log.Fatalf("write: %v", err)
	}

	buf := make([]byte, 65535)
	n, err := conn.Read(buf)
	if err != nil {
		log.Fatalf("read: %v", err)
	}

	resp, err := wire.Decode(buf[:n])
	if err != nil {
		log.Fatalf("decoding response: %v", err)
	}

	fmt.Printf("rcode=%d aa=%v answers=%d\n", resp.Header.Rcode, resp.Header.AA, len(resp.Answer))
	for _, rr := range resp.Answer {
		fmt.Printf("  %s\tTTL=%d\tTYPE=%d\tRDATA=%d bytes\n", rr.Name, rr.TTL, rr.Type, len(rr.RData))
	}
}

func runBench(typeCode uint16) {
	log.Printf("starting benchmark against %s with %d workers for %v", *target, *workers, *duration)

	var count, errs uint64
	start := time.Now()
	done := make(chan struct{})

	req, err := buildQuery(1, *domain, typeCode)
	if err != nil {
		log.Fatalf("building query: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := net.Dial("udp", *target)
			if err != nil {
				log.Printf("dial error: %v", err)
				return
			}
			defer conn.Close()

			buf := make([]byte, 65535)
			for {
				select {
				case <-done:
					return
				default:
					if _, err := conn.Write(req); err != nil {
						atomic.AddUint64(&errs, 1)
						continue
					}
					conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
					if _, err := conn.Read(buf); err != nil {
						atomic.AddUint64(&errs, 1)
						continue
					}
					atomic.AddUint64(&count, 1)
				}
			}
		}()
	}

	time.Sleep(*duration)
	close(done)
	wg.Wait()

	elapsed := time.Since(start)
	qps := float64(count) / elapsed.Seconds()

	fmt.Printf("\n--- Results ---\n")
	fmt.Printf("Total Requests: %d\n", count)
	fmt.Printf("Total Errors:   %d\n", errs)
	fmt.Printf("Duration:       %.2fs\n", elapsed.Seconds())
	fmt.Printf("QPS:            %.2f\n", qps)
}
