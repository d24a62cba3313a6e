package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
)

// Handler consumes one decoded command. There is no reply channel; effects
// surface through the daemon's own logging and notifications.
type Handler interface {
	Handle(ctx context.Context, command string)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, command string)

func (f HandlerFunc) Handle(ctx context.Context, command string) {
	f(ctx, command)
}

// Serve accepts unix-socket clients until context cancellation or listener
// close. Each connection may carry any number of newline-terminated
// commands.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()

			scanner := bufio.NewScanner(c)
			for scanner.Scan() {
				command := strings.ToLower(strings.TrimSpace(scanner.Text()))
				if command == "" {
					continue
				}
				handler.Handle(ctx, command)
			}
		}(conn)
	}
}
