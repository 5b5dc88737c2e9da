// Package dhtlink 管理本地客户端与 DHT 覆盖网络之间的连接
//
// Client 驱动一个外部的后端节点进程（拥有 DHT 实例和监听端口）：
// 启动并连接引导节点、周期性拉取健康快照、把 NAT 可达性变化转换为通知、
// 维护发现到的节点集合与已连接节点列表。没有后端时，发现和直连通过
// websocket 信令和 WebRTC 会话回退完成。
//
// # 快速开始
//
//	client, err := dhtlink.Start(ctx,
//	    dhtlink.WithBackendEndpoint("http://127.0.0.1:7300"),
//	    dhtlink.WithBootstrapNodes("/ip4/1.2.3.4/tcp/4001/p2p/Qm..."),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # 连接状态
//
//	Disconnected ──Connect──▶ Connecting ──成功──▶ Connected
//	      ▲                       │  ▲                 │
//	      └──Cancel/致命错误───────┘  └──轮询：节点数为 0─┘
//
// 轮询只会在 Connected 与 Connecting 之间切换，永远不会置为 Disconnected；
// 只有 Cancel、Disconnect 和致命错误会回到 Disconnected，且不会自动重试。
//
// # 事件
//
// 所有状态变化都通过 EventBus 广播，订阅时传入事件指针类型：
//
//	sub, _ := client.Subscribe(new(types.EvtStatusChanged))
//	for raw := range sub.Out() {
//	    ev := raw.(*types.EvtStatusChanged)
//	    fmt.Println(ev.Old, "→", ev.New)
//	}
//
// 状态、健康快照、发现集合和节点列表事件是有状态的，后订阅者会先收到最近一次的值。
package dhtlink
