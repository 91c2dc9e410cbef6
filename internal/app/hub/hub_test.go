package hub

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hzpresence/internal/app/presence"
	"hzpresence/internal/app/user"
	"hzpresence/internal/pkg/wire"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	h := New(Options{})
	go h.Run()
	t.Cleanup(func() {
		h.Stop()
		<-h.Done()
	})

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(h, conn, r.URL.Query().Get(wire.UserIDParam)).Serve()
	}))
	t.Cleanup(srv.Close)

	return h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?"+wire.UserIDParam+"="+userID, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userID, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// nextRoster reads frames until a roster event arrives.
func nextRoster(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var env wire.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read roster: %v", err)
		}
		if env.Type != wire.TypeOnlineUsers {
			continue
		}
		ids, err := wire.DecodeOnlineUsers(env)
		if err != nil {
			t.Fatalf("decode roster: %v", err)
		}
		return ids
	}
}

func closeCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return closeErr.Code
			}
			t.Fatalf("expected close frame, got %v", err)
		}
	}
}

func joined(ids []string) string { return strings.Join(ids, ",") }

func TestHub_BroadcastsRosterInJoinOrder(t *testing.T) {
	h, url := newTestHub(t)

	a := dial(t, url, "a")
	if got := nextRoster(t, a); joined(got) != "a" {
		t.Fatalf("a: expected [a], got %v", got)
	}

	b := dial(t, url, "b")
	if got := nextRoster(t, b); joined(got) != "a,b" {
		t.Fatalf("b: expected [a b], got %v", got)
	}
	if got := nextRoster(t, a); joined(got) != "a,b" {
		t.Fatalf("a: expected [a b], got %v", got)
	}
	if joined(h.Online()) != "a,b" {
		t.Fatalf("unexpected Online %v", h.Online())
	}

	b.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	if got := nextRoster(t, a); joined(got) != "a" {
		t.Fatalf("a: expected [a] after b left, got %v", got)
	}
}

func TestHub_KicksReplacedConnection(t *testing.T) {
	h, url := newTestHub(t)

	first := dial(t, url, "a")
	nextRoster(t, first)

	second := dial(t, url, "a")
	if got := nextRoster(t, second); joined(got) != "a" {
		t.Fatalf("expected a single entry for a, got %v", got)
	}
	if code := closeCode(t, first); code != wire.CloseSessionKicked {
		t.Fatalf("expected close code %d, got %d", wire.CloseSessionKicked, code)
	}

	// the kicked connection's departure must not remove the new one
	time.Sleep(50 * time.Millisecond)
	if joined(h.Online()) != "a" {
		t.Fatalf("expected a to stay online, got %v", h.Online())
	}
}

func TestHub_AnswersRosterRequest(t *testing.T) {
	_, url := newTestHub(t)

	a := dial(t, url, "a")
	nextRoster(t, a)

	env, err := wire.NewEnvelope(wire.TypeOnlineUsers, struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := a.WriteJSON(env); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := nextRoster(t, a); joined(got) != "a" {
		t.Fatalf("expected [a], got %v", got)
	}
}

func TestHub_StopClosesConnections(t *testing.T) {
	h, url := newTestHub(t)

	a := dial(t, url, "a")
	nextRoster(t, a)

	h.Stop()
	if code := closeCode(t, a); code != websocket.CloseGoingAway {
		t.Fatalf("expected going away, got %d", code)
	}
	<-h.Done()
	if len(h.Online()) != 0 {
		t.Fatalf("expected nobody online after stop")
	}
}

func TestHub_PingsKeepPresenceChannelAlive(t *testing.T) {
	h := New(Options{PongWait: 200 * time.Millisecond, PingPeriod: 50 * time.Millisecond})
	go h.Run()
	t.Cleanup(func() { h.Stop(); <-h.Done() })

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(h, conn, r.URL.Query().Get(wire.UserIDParam)).Serve()
	}))
	t.Cleanup(srv.Close)

	ch, err := presence.NewChannel(presence.Config{
		URL:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		PongWait: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	t.Cleanup(ch.Disconnect)

	ch.Connect(&user.User{ID: "u1"})

	deadline := time.Now().Add(3 * time.Second)
	for joined(ch.Roster()) != "u1" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if joined(ch.Roster()) != "u1" {
		t.Fatalf("presence channel never received the roster, got %v", ch.Roster())
	}

	// several pong windows pass without any roster traffic
	time.Sleep(600 * time.Millisecond)
	if !ch.Connected() || joined(h.Online()) != "u1" {
		t.Fatalf("connection should survive on pings alone: state=%s online=%v", ch.State(), h.Online())
	}

	ch.Disconnect()
	deadline = time.Now().Add(3 * time.Second)
	for len(h.Online()) != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(h.Online()) != 0 {
		t.Fatalf("hub still lists %v after disconnect", h.Online())
	}
}
