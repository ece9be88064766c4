// Package mailbox shares one serial line between many goroutines.
//
// A single background reader owns the port input. It assembles
// newline-terminated lines and broadcasts each one to every registered
// consumer through that consumer's own bounded queue. Writers share the port
// output through one mutex, so a line written by one goroutine is never
// interleaved with another's.
//
// Features:
//   - Non-blocking reads: Read and ReadBytes return immediately, empty when
//     nothing is pending
//   - Lazy registration keyed by Token, at most MaxConsumers consumers, never removed
//   - Oldest-first eviction: a full queue loses its oldest line, then the new
//     line is retried for a bounded wait and dropped for that consumer only
//   - Serialized output: Print, Println, Printf and io.Writer
//   - Prometheus counters for reads, evictions, drops and rejections
//
// Example usage:
//
//	p, err := port.Open(port.Config{Device: "/dev/ttyUSB0", BaudRate: 115200})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	hub, err := mailbox.New(p)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hub.InitWithCapacity(ctx, 256)
//	defer hub.Close()
//
//	tok := mailbox.NewToken()
//	go func() {
//	    for {
//	        if line := hub.Read(tok); line != "" {
//	            fmt.Println("Received:", line)
//	            continue
//	        }
//	        time.Sleep(10 * time.Millisecond)
//	    }
//	}()
//
//	hub.Println("C,START")
//
// Calls made before Init are safe: writes are discarded and reads return
// nothing.
package mailbox
