package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/jobboard/dashboard/internal/dashboard"
	"github.com/jobboard/dashboard/internal/status"
)

const (
	// maxFrameSize caps a single client frame. Larger frames end the session.
	maxFrameSize = 1 << 20
	// maxEventSize caps the frames decoded into events. Larger ones are
	// dropped and reported to the page.
	maxEventSize = 16 << 10
)

// FetcherFunc builds the catalog fetcher for a session. siteURL is the root
// of the site that served the dashboard, as returned by SiteURL.
type FetcherFunc func(siteURL string) dashboard.Fetcher

type Server struct {
	kv             status.KV
	registry       *Registry
	newFetcher     FetcherFunc
	opts           dashboard.Options
	originPatterns []string
}

func NewServer(kv status.KV, newFetcher FetcherFunc, opts dashboard.Options) *Server {
	return &Server{
		kv:             kv,
		registry:       NewRegistry(),
		newFetcher:     newFetcher,
		opts:           opts,
	}
}

// SetOriginPatterns lists the foreign page origins allowed to open a session.
// With none, only pages served from the same host are accepted.
func (s *Server) SetOriginPatterns(patterns []string) {
	s.originPatterns = patterns
}

func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "goodbye")
	conn.SetReadLimit(maxFrameSize)

	client := NewClient()
	client.UserAgent = r.UserAgent()
	client.RemoteAddr = r.RemoteAddr
	s.registry.Add(client)
	defer s.registry.Remove(client.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ack := AckMessage{
		Type:      "ack",
		SessionID: client.ID,
		Message:   "Welcome!",
	}
	if err := wsjson.Write(ctx, conn, ack); err != nil {
		log.Printf("Failed to send ack: %v", err)
		return
	}

	events := make(chan dashboard.Event)
	go s.readMessages(ctx, conn, client, events)

	surface := &connSurface{ctx: ctx, conn: conn}
	session := dashboard.NewSession(client.ID, s.kv, s.newFetcher(SiteURL(r)), surface, s.opts)

	if err := session.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Session %s ended: %v", client.ID, err)
	}
}

// readMessages feeds browser frames into events and closes it when the
// socket goes away.
func (s *Server) readMessages(ctx context.Context, conn *websocket.Conn, c *Client, events chan<- dashboard.Event) {
	defer close(events)

	for {
		data, err := readFrame(ctx, conn)
		if errors.Is(err, errFrameTooLarge) {
			log.Printf("Session %s: %v", c.ID, err)
			select {
			case events <- dashboard.RejectedEvent{Reason: err.Error()}:
				continue
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			code := websocket.CloseStatus(err)
			if code != websocket.StatusNormalClosure && code != websocket.StatusGoingAway && ctx.Err() == nil {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		ev, err := decodeEvent(data)
		if err != nil {
			log.Printf("Session %s: %v", c.ID, err)
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

var errFrameTooLarge = fmt.Errorf("message exceeds %d bytes", maxEventSize)

// readFrame reads one whole message. A message over maxEventSize is drained
// and reported as errFrameTooLarge.
func readFrame(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	_, rd, err := conn.Reader(ctx)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(rd, maxEventSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEventSize {
		if _, err := io.Copy(io.Discard, rd); err != nil {
			return nil, err
		}
		return nil, errFrameTooLarge
	}
	return data, nil
}

// SiteURL returns the root of the site the request was addressed to. Catalog
// references are resolved against it; page URLs supplied by the client are
// never trusted.
func SiteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: r.Host, Path: "/"}).String()
}
