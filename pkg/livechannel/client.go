package livechannel

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"SOS911/pkg/errors"
	"SOS911/pkg/metrics"
)

// Client 实时通道客户端
// 整个进程只持有一个底层连接：报警状态推送、位置上报、群聊
// 都复用它。Connect 已连接时为幂等no-op，不会创建第二条连接。
type Client struct {
	url        string
	maxRetries int

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{} // 当前连接的生命周期
	userID  string
	closing bool // 显式 Disconnect 与传输错误区分

	subs   map[string]map[string]*Subscription // topic -> subID -> 订阅
	global map[string]*Subscription            // 进程级 alert:new 订阅
}

// Config 通道配置
type Config struct {
	URL        string
	MaxRetries int // 传输错误后的自动重连上限，耗尽后保持断开
}

// NewClient 创建通道客户端，不建立连接
func NewClient(cfg Config) *Client {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &Client{
		url:        cfg.URL,
		maxRetries: retries,
		subs:       make(map[string]map[string]*Subscription),
		global:     make(map[string]*Subscription),
	}
}

// State 当前连接状态
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect 建立连接，已连接或连接中时直接返回
// userID 非空时连接成功后自动加入个人房间
func (c *Client) Connect(userID string) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.closing = false
	c.userID = userID
	c.mu.Unlock()

	return c.dial(false)
}

// dial 建立底层连接并启动读写协程
func (c *Client) dial(isReconnect bool) error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return errors.WrapCode(errors.CodeChannel, err, "live channel connect failed")
	}

	c.mu.Lock()
	c.conn = conn
	c.send = make(chan []byte, 64)
	c.done = make(chan struct{})
	c.state = StateConnected
	userID := c.userID
	topics := make([]string, 0, len(c.subs)+1)
	if userID != "" {
		topics = append(topics, UserRoom(userID))
	}
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	done, send := c.done, c.send
	c.mu.Unlock()

	kind := "connect"
	if isReconnect {
		kind = "reconnect"
	}
	metrics.ChannelConnects.WithLabelValues(kind).Inc()
	logrus.Infof("实时通道已连接: %s", c.url)

	go c.writePump(conn, send, done)
	go c.readPump(conn, done)

	// 订阅在每次连接后重新建立
	for _, topic := range topics {
		c.sendJoin(topic)
	}
	return nil
}

// Disconnect 主动断开，丢弃所有订阅
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.closing = true
	conn := c.conn
	c.teardownLocked()
	c.subs = make(map[string]map[string]*Subscription)
	c.global = make(map[string]*Subscription)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	logrus.Info("实时通道已断开")
}

// teardownLocked 复位连接级状态，调用方必须持锁
func (c *Client) teardownLocked() {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.conn = nil
	c.send = nil
	c.state = StateDisconnected
}

// readPump 读取消息的协程
func (c *Client) readPump(conn *websocket.Conn, done chan struct{}) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return // 主动断开
			default:
			}
			c.mu.Lock()
			closing := c.closing
			if !closing {
				c.teardownLocked()
			}
			c.mu.Unlock()
			_ = conn.Close()
			if !closing {
				logrus.Warnf("实时通道读取错误: %v", err)
				go c.reconnect()
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logrus.Errorf("消息解析失败: %v", err)
			continue
		}
		c.dispatch(msg)
	}
}

// writePump 发送消息的协程
func (c *Client) writePump(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	ticker := time.NewTicker(27 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case data := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logrus.Warnf("实时通道写入错误: %v", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reconnect 传输错误后的有限次自动重连
// 次数耗尽后停在 Disconnected，等待下一次显式 Connect
func (c *Client) reconnect() {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()

		time.Sleep(time.Duration(attempt) * time.Second)
		if err := c.dial(true); err == nil {
			return
		}
		logrus.Warnf("实时通道重连失败 (%d/%d)", attempt, c.maxRetries)
	}
	logrus.Error("实时通道重连次数耗尽，保持断开")
}

// dispatch 路由入站消息
// 通道本身不做去重：重连后服务端可能重发，消费端必须按
// 事件ID自行去重（见 service.EventDeduper）
func (c *Client) dispatch(msg Message) {
	c.mu.Lock()
	var cbs []Callback
	if msg.Group != "" {
		for _, sub := range c.subs[msg.Group] {
			cbs = append(cbs, sub.cb)
		}
	}
	if msg.Type == EventNewAlert {
		for _, sub := range c.global {
			cbs = append(cbs, sub.cb)
		}
	}
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(msg)
	}
}

// subscribe 注册订阅并在需要时加入房间
func (c *Client) subscribe(topic string, cb Callback) *Subscription {
	sub := &Subscription{id: uuid.NewString(), topic: topic, cb: cb, client: c}

	c.mu.Lock()
	first := false
	if topic == "" {
		c.global[sub.id] = sub
	} else {
		if c.subs[topic] == nil {
			c.subs[topic] = make(map[string]*Subscription)
			first = true
		}
		c.subs[topic][sub.id] = sub
	}
	connected := c.state == StateConnected
	c.mu.Unlock()

	if first && connected {
		c.sendJoin(topic)
	}
	return sub
}

// removeSubscription 注销订阅，房间最后一个订阅移除时发 leave
func (c *Client) removeSubscription(sub *Subscription) {
	c.mu.Lock()
	last := false
	if sub.topic == "" {
		delete(c.global, sub.id)
	} else if m := c.subs[sub.topic]; m != nil {
		delete(m, sub.id)
		if len(m) == 0 {
			delete(c.subs, sub.topic)
			last = true
		}
	}
	connected := c.state == StateConnected
	c.mu.Unlock()

	if last && connected {
		c.sendLeave(sub.topic)
	}
}

// SubscribeToAlert 订阅某个报警的状态变更和位置更新
func (c *Client) SubscribeToAlert(alertID string, cb Callback) *Subscription {
	return c.subscribe(AlertRoom(alertID), cb)
}

// UnsubscribeFromAlert 关闭该报警房间的全部订阅
func (c *Client) UnsubscribeFromAlert(alertID string) {
	topic := AlertRoom(alertID)
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subs[topic]))
	for _, sub := range c.subs[topic] {
		subs = append(subs, sub)
	}
	c.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

// SubscribeToGroupChat 订阅群聊房间
func (c *Client) SubscribeToGroupChat(groupID string, cb Callback) *Subscription {
	return c.subscribe(GroupRoom(groupID), cb)
}

// LeaveGroupChat 离开群聊房间
func (c *Client) LeaveGroupChat(groupID string) {
	topic := GroupRoom(groupID)
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subs[topic]))
	for _, sub := range c.subs[topic] {
		subs = append(subs, sub)
	}
	c.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

// OnNewAlert 注册进程级的新报警监听（驱动应用内角标）
func (c *Client) OnNewAlert(cb Callback) *Subscription {
	return c.subscribe("", cb)
}

// PushLocation 上报报警的实时位置
func (c *Client) PushLocation(alertID string, latitude, longitude float64) error {
	return c.sendMessage(Message{
		Type: EventUpdateLocation,
		Data: map[string]interface{}{
			"alertId":  alertID,
			"location": map[string]float64{"latitude": latitude, "longitude": longitude},
		},
	})
}

func (c *Client) sendJoin(topic string) {
	if err := c.sendMessage(Message{Type: EventJoin, Data: topic}); err != nil {
		logrus.Warnf("加入房间失败 %s: %v", topic, err)
	}
}

func (c *Client) sendLeave(topic string) {
	if err := c.sendMessage(Message{Type: EventLeave, Data: topic}); err != nil {
		logrus.Warnf("离开房间失败 %s: %v", topic, err)
	}
}

// sendMessage 消息入队，未连接或缓冲区满时返回错误
func (c *Client) sendMessage(msg Message) error {
	msg.Timestamp = time.Now().Unix()
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	send := c.send
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || send == nil {
		return errors.WithCode(errors.CodeChannel, "live channel not connected")
	}
	select {
	case send <- data:
		return nil
	default:
		return fmt.Errorf("发送缓冲区已满")
	}
}
