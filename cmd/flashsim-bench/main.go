// flashsim-bench - Benchmark tool for FlashSim
//
// Usage:
//
//	flashsim-bench [flags]
//
// Flags:
//
//	-addr string     Server address (default "localhost:6379")
//	-clients int     Number of parallel clients (default 50)
//	-requests int    Total number of requests (default 100000)
//	-members int     Distinct members per set (default 1000)
//	-test string     Test type: sadd,sismember,sinter,mixed (default "mixed")
package main

import (
	"flag"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flashdb/flashsim/internal/protocol"
)

func main() {
	addr := flag.String("addr", "localhost:6379", "Server address")
	clients := flag.Int("clients", 50, "Number of parallel clients")
	requests := flag.Int("requests", 100000, "Total number of requests")
	members := flag.Int("members", 1000, "Distinct members per set")
	testType := flag.String("test", "mixed", "Test type: sadd,sismember,sinter,mixed")
	flag.Parse()

	if *clients < 1 || *members < 1 {
		fmt.Println("clients and members must be positive")
		return
	}

	fmt.Println("====== FlashSim Benchmark ======")
	fmt.Printf("Server: %s\n", *addr)
	fmt.Printf("Clients: %d\n", *clients)
	fmt.Printf("Requests: %d\n", *requests)
	fmt.Printf("Test: %s\n", *testType)
	fmt.Println()

	var completed int64
	var errors int64
	reqPerClient := *requests / *clients

	start := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()

			conn, err := net.Dial("tcp", *addr)
			if err != nil {
				atomic.AddInt64(&errors, int64(reqPerClient))
				return
			}
			defer conn.Close()

			writer := protocol.NewWriter(conn)
			reader := protocol.NewReader(conn)
			key := fmt.Sprintf("bench:set:%d", clientID%8)
			other := fmt.Sprintf("bench:set:%d", (clientID+1)%8)

			for j := 0; j < reqPerClient; j++ {
				member := strconv.Itoa(j % *members)

				var cmd []string
				switch *testType {
				case "sadd":
					cmd = []string{"SADD", key, member}
				case "sismember":
					cmd = []string{"SISMEMBER", key, member}
				case "sinter":
					cmd = []string{"SINTERCARD", "2", key, other}
				case "mixed":
					switch j % 4 {
					case 0, 1:
						cmd = []string{"SADD", key, member}
					case 2:
						cmd = []string{"SISMEMBER", key, member}
					default:
						cmd = []string{"SREM", key, member}
					}
				default:
					cmd = []string{"PING"}
				}

				if err := writer.WriteCommand(cmd...); err != nil {
					atomic.AddInt64(&errors, 1)
					continue
				}

				reply, err := reader.ReadValue()
				if err != nil || reply.IsError() {
					atomic.AddInt64(&errors, 1)
					continue
				}

				atomic.AddInt64(&completed, 1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("====== Results ======")
	fmt.Printf("Total time: %v\n", elapsed)
	fmt.Printf("Completed: %d\n", completed)
	fmt.Printf("Errors: %d\n", errors)
	if completed > 0 {
		fmt.Printf("Requests/sec: %.2f\n", float64(completed)/elapsed.Seconds())
		fmt.Printf("Avg latency: %.3f ms\n", float64(elapsed.Milliseconds())/float64(completed)*float64(*clients))
	}
}
