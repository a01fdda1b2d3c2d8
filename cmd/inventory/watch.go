package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/inventory"
	"github.com/vyrodovalexey/inventory-tracker/internal/model"
	"github.com/vyrodovalexey/inventory-tracker/internal/remote"
)

// runWatch subscribes to the service's change feed, loads the collection
// and then applies each feed event to the local store until ctx ends or
// -count changes have been seen. Events committed while the fetch is in
// flight queue on the connection and merge over the fetched items.
func runWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("watch")
	count := fs.Int("count", 0, "stop after this many changes (0 = until interrupted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	conn, err := dialFeed(ctx, a)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := a.store.DispatchFetchItems(ctx); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	fmt.Fprintf(a.out, "watching %d items\n", a.store.Len())

	unsubscribe := a.store.Subscribe(a.report)
	defer unsubscribe()

	seen := 0
	for *count == 0 || seen < *count {
		var event model.ChangeEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading change feed: %w", err)
		}

		if applyChange(a.store, event, a.logger) {
			seen++
		}
	}

	return nil
}

// applyChange mirrors one feed event into the store and reports whether
// it described an item change.
func applyChange(s *inventory.Store, event model.ChangeEvent, logger *zap.Logger) bool {
	switch event.Type {
	case model.ChangeTypeCreated, model.ChangeTypeUpdated:
		if event.Item == nil {
			return false
		}
		if s.UpdateItem(*event.Item) {
			return true
		}
		if err := s.AddItem(*event.Item); err != nil && !errors.Is(err, inventory.ErrDuplicateID) {
			logger.Warn("failed to apply change", zap.String("item_id", event.ItemID), zap.Error(err))
		}
		return true
	case model.ChangeTypeDeleted:
		s.RemoveItem(event.ItemID)
		return true
	default:
		return false
	}
}

func dialFeed(ctx context.Context, a *app) (*websocket.Conn, error) {
	feedURL, err := feedURL(a.cfg.RemoteURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	switch {
	case a.cfg.RemoteAPIKey != "":
		header.Set(remote.APIKeyHeader, a.cfg.RemoteAPIKey)
	case a.cfg.RemoteBasicUser != "":
		req := &http.Request{Header: header}
		req.SetBasicAuth(a.cfg.RemoteBasicUser, a.cfg.RemoteBasicPass)
	}

	dialer := websocket.Dialer{HandshakeTimeout: a.cfg.RemoteTimeout}
	conn, resp, err := dialer.DialContext(ctx, feedURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connecting to change feed: %s", resp.Status)
		}
		return nil, fmt.Errorf("connecting to change feed: %w", err)
	}

	return conn, nil
}

// feedURL maps the service base URL onto its websocket endpoint.
func feedURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing remote URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported remote URL scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
