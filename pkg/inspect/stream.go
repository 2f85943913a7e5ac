package inspect

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/loom/pkg/wire"
)

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte

	once sync.Once
	done chan struct{}
}

// enqueue queues a frame without blocking. It reports false when the
// client's buffer is full.
func (c *client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan []byte, s.config.SendBuffer),
		done:   make(chan struct{}),
	}

	// Registering on the scheduler goroutine orders the hello frame before
	// any commit broadcast to this client.
	err = s.rt.Scheduler().Do(r.Context(), func() {
		c.send <- wire.EncodeHello(wire.Hello{
			Version: wire.Version,
			Runtime: s.rt.ID(),
			Commits: s.rt.Commits(),
		})
		s.mu.Lock()
		if !s.closed {
			s.clients[c] = struct{}{}
		}
		s.mu.Unlock()
	})
	if err != nil {
		c.close()
		return
	}
	s.logger.Debug("inspector client connected", "remote", c.remote)

	go s.writeLoop(c)

	// Drain reads until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
	s.logger.Debug("inspector client disconnected", "remote", c.remote)
}

func (s *Server) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.close()
				return
			}
		}
	}
}
