package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dep2p/go-dhtlink/pkg/types"
)

// eventBuffer 事件通道缓冲
const eventBuffer = 32

// Events 订阅后端推送事件
//
// 返回的通道在 ctx 结束后关闭。连接失败或断开时按固定间隔重连，
// 无法解析的帧被跳过。
func (c *Client) Events(ctx context.Context) (<-chan types.BackendEvent, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	out := make(chan types.BackendEvent, eventBuffer)
	go c.streamLoop(ctx, out)
	return out, nil
}

func (c *Client) streamLoop(ctx context.Context, out chan<- types.BackendEvent) {
	defer close(out)
	for {
		err := c.streamOnce(ctx, out)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("后端事件流断开，稍后重连", "error", err, "delay", c.reconnectDelay)

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// streamOnce 建立一次事件流连接并读取到断开
func (c *Client) streamOnce(ctx context.Context, out chan<- types.BackendEvent) error {
	conn, _, err := c.dialer.DialContext(ctx, c.eventsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("已连接后端事件流", "url", c.eventsURL)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var frame eventFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		ev, err := decodeEvent(frame)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				logger.Debug("忽略未知的后端事件", "event", frame.Event)
			} else {
				logger.Warn("解析后端事件失败", "event", frame.Event, "error", err)
			}
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
