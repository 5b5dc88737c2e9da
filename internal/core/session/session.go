package session

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/multierr"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// Session WebRTC 会话
type Session struct {
	id     string
	peerID string
	pc     *webrtc.PeerConnection

	mu        sync.Mutex
	dc        *webrtc.DataChannel
	state     interfaces.SessionState
	onState   func(interfaces.SessionState)
	onMessage func([]byte)
	pending   []webrtc.ICECandidateInit
	remoteSet bool
	onClosed  func(*Session)
}

var _ interfaces.Session = (*Session)(nil)

func newSession(id, peerID string, pc *webrtc.PeerConnection, onState func(interfaces.SessionState)) *Session {
	s := &Session{
		id:      id,
		peerID:  peerID,
		pc:      pc,
		state:   interfaces.SessionNew,
		onState: onState,
	}
	if pc != nil {
		pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
			switch st {
			case webrtc.PeerConnectionStateConnecting:
				s.setState(interfaces.SessionConnecting)
			case webrtc.PeerConnectionStateFailed:
				s.setState(interfaces.SessionFailed)
			case webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
				s.setState(interfaces.SessionClosed)
			}
		})
	}
	return s
}

// ID 会话 ID
func (s *Session) ID() string { return s.id }

// PeerID 对端 ID
func (s *Session) PeerID() string { return s.peerID }

// State 当前状态
func (s *Session) State() interfaces.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnMessage 设置收到数据时的回调
func (s *Session) OnMessage(fn func([]byte)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// Send 发送数据，仅在数据通道打开时有效
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return dc.Send(data)
}

// Close 关闭会话
func (s *Session) Close() error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()

	var err error
	if dc != nil {
		err = multierr.Append(err, dc.Close())
	}
	if s.pc != nil {
		err = multierr.Append(err, s.pc.Close())
	}
	s.setState(interfaces.SessionClosed)
	return err
}

// attachChannel 绑定数据通道，通道打开即视为握手完成
func (s *Session) attachChannel(dc *webrtc.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() { s.setState(interfaces.SessionConnected) })
	dc.OnClose(func() { s.setState(interfaces.SessionClosed) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		s.mu.Lock()
		fn := s.onMessage
		s.mu.Unlock()
		if fn != nil {
			fn(msg.Data)
		}
	})
}

// setState 更新状态；终止状态之后不再变化，重复状态不回调
func (s *Session) setState(st interfaces.SessionState) {
	s.mu.Lock()
	if s.state == st || s.state == interfaces.SessionFailed || s.state == interfaces.SessionClosed {
		s.mu.Unlock()
		return
	}
	s.state = st
	cb, closed := s.onState, s.onClosed
	s.mu.Unlock()

	logger.Debug("会话状态变化", "session", s.id, "peer", s.peerID, "state", st)
	if cb != nil {
		cb(st)
	}
	if (st == interfaces.SessionFailed || st == interfaces.SessionClosed) && closed != nil {
		closed(s)
	}
}

// addCandidate 添加远端候选，远端描述未设置时先缓存
func (s *Session) addCandidate(c webrtc.ICECandidateInit) error {
	s.mu.Lock()
	if !s.remoteSet {
		s.pending = append(s.pending, c)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.pc.AddICECandidate(c)
}

// setRemote 设置远端描述并冲刷缓存的候选
func (s *Session) setRemote(desc webrtc.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return err
	}
	s.mu.Lock()
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	var err error
	for _, c := range pending {
		err = multierr.Append(err, s.pc.AddICECandidate(c))
	}
	return err
}
