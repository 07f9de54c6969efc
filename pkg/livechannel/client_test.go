package livechannel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// channelServer 模拟后端 socket 网关：记录 join/leave，支持向房间推送
type channelServer struct {
	*httptest.Server

	mu     sync.Mutex
	conns  []*websocket.Conn
	joins  []string
	leaves []string
	others []Message
}

func newChannelServer(t *testing.T) *channelServer {
	t.Helper()
	srv := &channelServer{}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		srv.mu.Lock()
		srv.conns = append(srv.conns, conn)
		srv.mu.Unlock()

		go func() {
			for {
				_, raw, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var msg Message
				if json.Unmarshal(raw, &msg) != nil {
					continue
				}
				room, _ := msg.Data.(string)
				srv.mu.Lock()
				switch msg.Type {
				case EventJoin:
					srv.joins = append(srv.joins, room)
				case EventLeave:
					srv.leaves = append(srv.leaves, room)
				default:
					srv.others = append(srv.others, msg)
				}
				srv.mu.Unlock()
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *channelServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// push 向所有连接推送一条消息
func (s *channelServer) push(t *testing.T, msg Message) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
	}
}

func (s *channelServer) joinedRooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.joins...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestConnectJoinsPersonalRoom(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	defer c.Disconnect()

	require.NoError(t, c.Connect("u1"))
	assert.Equal(t, StateConnected, c.State())

	waitFor(t, func() bool {
		for _, r := range srv.joinedRooms() {
			if r == "user_u1" {
				return true
			}
		}
		return false
	})
}

func TestConnectIsIdempotent(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	defer c.Disconnect()

	require.NoError(t, c.Connect("u1"))
	require.NoError(t, c.Connect("u1")) // 已连接时no-op

	waitFor(t, func() bool { return len(srv.joinedRooms()) >= 1 })
	time.Sleep(50 * time.Millisecond)

	srv.mu.Lock()
	conns := len(srv.conns)
	srv.mu.Unlock()
	assert.Equal(t, 1, conns, "第二次 Connect 不能建新连接")
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	c := NewClient(Config{URL: "ws://127.0.0.1:1/ws", MaxRetries: 1})
	err := c.Connect("u1")
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestSubscribeToAlertRoutesBothEvents(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	defer c.Disconnect()
	require.NoError(t, c.Connect("u1"))

	var mu sync.Mutex
	var received []Message
	sub := c.SubscribeToAlert("42", func(msg Message) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})
	defer sub.Close()

	waitFor(t, func() bool {
		for _, r := range srv.joinedRooms() {
			if r == "alert_42" {
				return true
			}
		}
		return false
	})

	// 状态变更和位置更新都走同一个回调
	srv.push(t, Message{Type: EventAlertStatus, Group: "alert_42", Data: map[string]interface{}{"estado": "IN_PROGRESS"}})
	srv.push(t, Message{Type: EventLocationUpdated, Group: "alert_42", Data: map[string]interface{}{"latitude": 1.0}})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	})
}

func TestChannelDoesNotDeduplicate(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	defer c.Disconnect()
	require.NoError(t, c.Connect("u1"))

	var mu sync.Mutex
	count := 0
	sub := c.SubscribeToAlert("7", func(msg Message) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer sub.Close()

	waitFor(t, func() bool {
		for _, r := range srv.joinedRooms() {
			if r == "alert_7" {
				return true
			}
		}
		return false
	})

	// 重连后服务端可能重发同一事件，通道原样投递，去重是消费端义务
	evt := Message{Type: EventAlertStatus, Group: "alert_7", Data: map[string]interface{}{"eventId": "evt-1"}}
	srv.push(t, evt)
	srv.push(t, evt)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 2
	})
}

func TestSubscriptionCloseSendsLeave(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	defer c.Disconnect()
	require.NoError(t, c.Connect("u1"))

	sub := c.SubscribeToAlert("9", func(Message) {})
	waitFor(t, func() bool {
		for _, r := range srv.joinedRooms() {
			if r == "alert_9" {
				return true
			}
		}
		return false
	})

	sub.Close()
	sub.Close() // 幂等

	waitFor(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		for _, r := range srv.leaves {
			if r == "alert_9" {
				return true
			}
		}
		return false
	})
}

func TestOnNewAlertReceivesPersonalRoomEvents(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	defer c.Disconnect()
	require.NoError(t, c.Connect("u1"))

	var mu sync.Mutex
	var got []Message
	sub := c.OnNewAlert(func(msg Message) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})
	defer sub.Close()

	srv.push(t, Message{Type: EventNewAlert, Group: "user_u1", Data: map[string]interface{}{"id": "a1"}})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})
}

func TestDisconnectDiscardsSubscriptions(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	require.NoError(t, c.Connect("u1"))

	c.SubscribeToAlert("1", func(Message) {})
	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())

	c.mu.Lock()
	subCount := len(c.subs)
	c.mu.Unlock()
	assert.Zero(t, subCount)
}

func TestPushLocation(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	require.NoError(t, c.Connect("u1"))
	defer c.Disconnect()

	require.NoError(t, c.PushLocation("a1", -0.21, -78.51))

	waitFor(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.others) == 1
	})

	srv.mu.Lock()
	msg := srv.others[0]
	srv.mu.Unlock()
	assert.Equal(t, EventUpdateLocation, msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a1", data["alertId"])
}

func TestPushLocationWhenDisconnected(t *testing.T) {
	c := NewClient(Config{URL: "ws://127.0.0.1:1"})
	err := c.PushLocation("a1", 0.1, 0.1)
	require.Error(t, err)
}

func TestGroupChatJoinAndLeave(t *testing.T) {
	srv := newChannelServer(t)
	c := NewClient(Config{URL: srv.wsURL()})
	require.NoError(t, c.Connect("u1"))
	defer c.Disconnect()

	var got []Message
	var mu sync.Mutex
	c.SubscribeToGroupChat("g9", func(msg Message) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})

	waitFor(t, func() bool {
		for _, room := range srv.joinedRooms() {
			if room == GroupRoom("g9") {
				return true
			}
		}
		return false
	})

	srv.push(t, Message{Type: EventGroupMessage, Group: GroupRoom("g9"), Data: "hola"})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	c.LeaveGroupChat("g9")
	waitFor(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.leaves) == 1 && srv.leaves[0] == GroupRoom("g9")
	})
}
