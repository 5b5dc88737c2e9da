package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"go.uber.org/multierr"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
)

var logger = log.Logger("core/session")

const (
	dataChannelLabel = "dhtlink"
	sendTimeout      = 10 * time.Second
)

// AcceptFunc 入站会话回调，返回该会话的状态回调
type AcceptFunc func(s *Session) func(interfaces.SessionState)

// Option 会话工厂选项
type Option func(*Factory)

// WithSettingEngine 使用自定义的 SettingEngine（例如允许回环候选）
func WithSettingEngine(se webrtc.SettingEngine) Option {
	return func(f *Factory) {
		f.api = webrtc.NewAPI(webrtc.WithSettingEngine(se))
	}
}

// Factory 通过信令建立 WebRTC 会话
type Factory struct {
	sig    interfaces.Signaling
	config webrtc.Configuration
	api    *webrtc.API

	mu       sync.Mutex
	sessions map[string]*Session
	early    map[string][]webrtc.ICECandidateInit
	accept   AcceptFunc
	closed   bool
}

var _ interfaces.SessionFactory = (*Factory)(nil)

// NewFactory 创建会话工厂并接管信令消息处理
func NewFactory(sig interfaces.Signaling, iceServers []string, opts ...Option) (*Factory, error) {
	if sig == nil {
		return nil, ErrNoSignaling
	}
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}
	f := &Factory{
		sig:      sig,
		config:   cfg,
		sessions: make(map[string]*Session),
		early:    make(map[string][]webrtc.ICECandidateInit),
		api:      webrtc.NewAPI(),
	}
	for _, opt := range opts {
		opt(f)
	}
	sig.SetOnMessage(f.handleSignal)
	return f, nil
}

// SetAcceptFunc 设置入站会话回调；未设置时拒绝入站 offer
func (f *Factory) SetAcceptFunc(fn AcceptFunc) {
	f.mu.Lock()
	f.accept = fn
	f.mu.Unlock()
}

// Dial 向 peerID 发起会话
func (f *Factory) Dial(ctx context.Context, peerID string, onState func(interfaces.SessionState)) (interfaces.Session, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFactoryClosed
	}
	if _, ok := f.sessions[peerID]; ok {
		f.mu.Unlock()
		return nil, ErrSessionExists
	}
	f.mu.Unlock()

	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, err
	}
	s := newSession(uuid.NewString(), peerID, pc, onState)
	f.wire(s)

	dc, err := pc.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	s.attachChannel(dc)

	if err := f.register(s); err != nil {
		_ = pc.Close()
		return nil, err
	}

	offer, err := pc.CreateOffer(nil)
	if err == nil {
		err = pc.SetLocalDescription(offer)
	}
	if err == nil {
		err = f.sig.Send(ctx, interfaces.SignalMessage{
			Type: interfaces.SignalOffer,
			ID:   s.id,
			From: f.sig.LocalID(),
			To:   peerID,
			SDP:  offer.SDP,
		})
	}
	if err != nil {
		f.unregister(s)
		_ = s.Close()
		return nil, err
	}

	s.setState(interfaces.SessionConnecting)
	logger.Info("已发起会话", "peer", peerID, "session", s.id)
	return s, nil
}

// Session 返回与 peerID 的会话
func (f *Factory) Session(peerID string) (*Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[peerID]
	return s, ok
}

// Close 关闭所有会话
func (f *Factory) Close() error {
	f.mu.Lock()
	f.closed = true
	sessions := make([]*Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		sessions = append(sessions, s)
	}
	f.mu.Unlock()

	var err error
	for _, s := range sessions {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// wire 绑定本地候选转发与会话结束清理
func (f *Factory) wire(s *Session) {
	s.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := f.sig.Send(ctx, interfaces.SignalMessage{
			Type:      interfaces.SignalCandidate,
			ID:        s.id,
			From:      f.sig.LocalID(),
			To:        s.peerID,
			Candidate: string(raw),
		}); err != nil {
			logger.Debug("发送 ICE 候选失败", "peer", s.peerID, "error", err)
		}
	})
	s.mu.Lock()
	s.onClosed = f.unregister
	s.mu.Unlock()
}

func (f *Factory) register(s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFactoryClosed
	}
	if _, ok := f.sessions[s.peerID]; ok {
		return ErrSessionExists
	}
	f.sessions[s.peerID] = s
	return nil
}

func (f *Factory) unregister(s *Session) {
	f.mu.Lock()
	if cur, ok := f.sessions[s.peerID]; ok && cur == s {
		delete(f.sessions, s.peerID)
	}
	f.mu.Unlock()
}

// ============================================================================
//                              信令处理
// ============================================================================

func (f *Factory) handleSignal(msg interfaces.SignalMessage) {
	if msg.To != "" && msg.To != f.sig.LocalID() {
		return
	}
	var err error
	switch msg.Type {
	case interfaces.SignalOffer:
		err = f.handleOffer(msg)
	case interfaces.SignalAnswer:
		err = f.handleAnswer(msg)
	case interfaces.SignalCandidate:
		err = f.handleCandidate(msg)
	default:
		return
	}
	if err != nil {
		logger.Warn("处理信令消息失败", "type", msg.Type, "from", msg.From, "error", err)
	}
}

func (f *Factory) handleOffer(msg interfaces.SignalMessage) error {
	f.mu.Lock()
	accept := f.accept
	early := f.early[msg.From]
	delete(f.early, msg.From)
	f.mu.Unlock()

	if accept == nil {
		logger.Debug("未设置入站回调，忽略 offer", "from", msg.From)
		return nil
	}

	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return err
	}
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	s := newSession(id, msg.From, pc, nil)
	f.wire(s)
	pc.OnDataChannel(s.attachChannel)

	if err := f.register(s); err != nil {
		_ = pc.Close()
		return err
	}
	onState := accept(s)
	s.mu.Lock()
	s.onState = onState
	s.pending = append(s.pending, early...)
	s.mu.Unlock()

	fail := func(err error) error {
		f.unregister(s)
		_ = s.Close()
		return err
	}
	if err := s.setRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.SDP}); err != nil {
		return fail(err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail(err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := f.sig.Send(ctx, interfaces.SignalMessage{
		Type: interfaces.SignalAnswer,
		ID:   s.id,
		From: f.sig.LocalID(),
		To:   msg.From,
		SDP:  answer.SDP,
	}); err != nil {
		return fail(err)
	}
	s.setState(interfaces.SessionConnecting)
	logger.Info("已接受会话", "peer", msg.From, "session", s.id)
	return nil
}

func (f *Factory) handleAnswer(msg interfaces.SignalMessage) error {
	s, ok := f.Session(msg.From)
	if !ok {
		return nil
	}
	return s.setRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: msg.SDP})
}

func (f *Factory) handleCandidate(msg interfaces.SignalMessage) error {
	var c webrtc.ICECandidateInit
	if err := json.Unmarshal([]byte(msg.Candidate), &c); err != nil {
		return err
	}
	f.mu.Lock()
	s, ok := f.sessions[msg.From]
	if !ok {
		// offer 之前到达的候选
		f.early[msg.From] = append(f.early[msg.From], c)
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()
	return s.addCandidate(c)
}
