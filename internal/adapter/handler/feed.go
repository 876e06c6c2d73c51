package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
	"github.com/rl1809/bizdesk/internal/obs"
)

const (
	feedSendBuffer = 64
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = 30 * time.Second
	feedReadLimit  = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedEvent is pushed to websocket clients for every applied action.
type FeedEvent struct {
	Type string      `json:"type"`
	Tier domain.Tier `json:"tier"`
	At   time.Time   `json:"at"`
}

// Feed fans applied store actions out to websocket clients. Publishing never
// blocks: a client whose buffer is full misses the event.
type Feed struct {
	mu      sync.Mutex
	clients map[*feedClient]struct{}
	tier    domain.Tier
	now     func() time.Time
	closed  bool
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewFeed() *Feed {
	return &Feed{
		clients: make(map[*feedClient]struct{}),
		tier:    domain.TierFree,
		now:     time.Now,
	}
}

// Attach subscribes the feed to st. The tier is tracked from the actions
// themselves because listeners may not read the store.
func (f *Feed) Attach(st *store.Store) func() {
	f.mu.Lock()
	f.tier = st.Tier()
	f.mu.Unlock()
	return st.Subscribe(f.Publish)
}

func (f *Feed) Publish(batch []store.Action) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range batch {
		switch a.(type) {
		case store.UpgradeToPro:
			f.tier = domain.TierPro
		case store.DowngradeToFree:
			f.tier = domain.TierFree
		}
		if len(f.clients) == 0 {
			continue
		}
		msg, err := json.Marshal(FeedEvent{Type: a.Type(), Tier: f.tier, At: f.now()})
		if err != nil {
			obs.Logger.Error("feed_encode_failed", "error", err)
			continue
		}
		for c := range f.clients {
			select {
			case c.send <- msg:
			default:
				obs.Logger.Debug("feed_event_dropped", "type", a.Type())
			}
		}
	}
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every client and refuses new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for c := range f.clients {
		delete(f.clients, c)
		close(c.send)
	}
}

// Serve upgrades the request and streams events until the client leaves.
func (f *Feed) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		obs.Logger.Warn("feed_upgrade_failed", "error", err)
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.clients[client] = struct{}{}
	f.mu.Unlock()

	go f.writePump(client)
	f.readPump(client)
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

// readPump only watches for the client going away.
func (f *Feed) readPump(c *feedClient) {
	defer func() {
		f.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(feedReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				obs.Logger.Warn("feed_read_failed", "error", err)
			}
			return
		}
	}
}

func (f *Feed) writePump(c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
